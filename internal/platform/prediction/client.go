// Package prediction wraps the external risk-prediction service. The service
// is an opaque HTTP collaborator: this package owns the request payload shape,
// the timeout bound, and response validation, nothing about the model itself.
package prediction

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/heartsync/api/internal/platform/apperror"
)

// Request is the clinical feature snapshot submitted for scoring.
type Request struct {
	Age             float64  `json:"age"`
	Gender          string   `json:"gender"`
	BMI             *float64 `json:"bmi,omitempty"`
	HeartRate       *float64 `json:"heart_rate,omitempty"`
	SystolicBP      *float64 `json:"systolic_bp,omitempty"`
	DiastolicBP     *float64 `json:"diastolic_bp,omitempty"`
	OxygenSat       *float64 `json:"oxygen_saturation,omitempty"`
	HasDiabetes     bool     `json:"has_diabetes"`
	HasHypertension bool     `json:"has_hypertension"`
	HasHeartDisease bool     `json:"has_heart_disease"`

	// Report-derived fields, present only for report-based predictions.
	DRGCode        string     `json:"drg_code,omitempty"`
	DRGSeverity    *int       `json:"drg_severity,omitempty"`
	DRGMortality   *int       `json:"drg_mortality,omitempty"`
	CPTCodes       []string   `json:"cpt_codes,omitempty"`
	ICD9Codes      []string   `json:"icd9_codes,omitempty"`
	ProcedurePairs [][2]int64 `json:"procedure_pairs,omitempty"`
	LabEvents      [][]string `json:"lab_events,omitempty"`
}

// Response is the structured prediction result.
type Response struct {
	HeartAttackRisk   float64            `json:"heart_attack_risk"`
	StrokeRisk        float64            `json:"stroke_risk"`
	CardiovascularAge float64            `json:"cardiovascular_age"`
	Factors           map[string]float64 `json:"factors_considered"`
	Recommendations   []string           `json:"recommendations"`
	ConfidenceScore   float64            `json:"confidence_score"`
	ModelVersion      string             `json:"model_version"`
}

// Client calls the external prediction service. It is constructed once and
// injected; there is no package-level singleton.
type Client struct {
	http   *resty.Client
	logger zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: client, logger: logger}
}

// Predict submits the feature snapshot and returns the validated result. Any
// transport failure, timeout, non-2xx status, or out-of-range response maps
// to a PredictionUnavailable error; the caller must not persist anything in
// that case.
func (c *Client) Predict(ctx context.Context, req *Request) (*Response, error) {
	var result Response
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/predict")
	if err != nil {
		c.logger.Error().Err(err).Msg("prediction service unreachable")
		return nil, apperror.PredictionUnavailable("prediction service unreachable", err)
	}
	if resp.IsError() {
		c.logger.Error().
			Int("status", resp.StatusCode()).
			Msg("prediction service returned error status")
		return nil, apperror.PredictionUnavailable(
			fmt.Sprintf("prediction service returned status %d", resp.StatusCode()), nil)
	}

	if err := validateResponse(&result); err != nil {
		c.logger.Error().Err(err).Msg("prediction service returned malformed response")
		return nil, apperror.PredictionUnavailable("prediction service returned a malformed response", err)
	}

	c.logger.Info().
		Float64("heart_attack_risk", result.HeartAttackRisk).
		Float64("stroke_risk", result.StrokeRisk).
		Str("model_version", result.ModelVersion).
		Msg("prediction received")

	return &result, nil
}

func validateResponse(r *Response) error {
	if r.HeartAttackRisk < 0 || r.HeartAttackRisk > 100 {
		return fmt.Errorf("heart_attack_risk out of range: %v", r.HeartAttackRisk)
	}
	if r.StrokeRisk < 0 || r.StrokeRisk > 100 {
		return fmt.Errorf("stroke_risk out of range: %v", r.StrokeRisk)
	}
	if r.CardiovascularAge < 0 {
		return fmt.Errorf("cardiovascular_age out of range: %v", r.CardiovascularAge)
	}
	if r.ConfidenceScore < 0 || r.ConfidenceScore > 1 {
		return fmt.Errorf("confidence_score out of range: %v", r.ConfidenceScore)
	}
	if r.ModelVersion == "" {
		return fmt.Errorf("model_version missing")
	}
	return nil
}
