package patient

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNormalizeCodeList(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		want    []string
		wantErr bool
	}{
		{name: "array", raw: `["99213"," 93000 "]`, want: []string{"99213", "93000"}},
		{name: "comma string", raw: `"410.71, 428.0,"`, want: []string{"410.71", "428.0"}},
		{name: "empty string", raw: `""`, want: nil},
		{name: "null", raw: `null`, want: nil},
		{name: "absent", raw: ``, want: nil},
		{name: "number", raw: `42`, wantErr: true},
		{name: "object", raw: `{"a":1}`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := normalizeCodeList(json.RawMessage(tc.raw))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNormalizeProcedurePairs(t *testing.T) {
	got, err := normalizeProcedurePairs(json.RawMessage(`[[1,3613],[2,3961]]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][2]int64{{1, 3613}, {2, 3961}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNormalizeProcedurePairs_EncodedString(t *testing.T) {
	got, err := normalizeProcedurePairs(json.RawMessage(`"[[1,3613]]"`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != [2]int64{1, 3613} {
		t.Errorf("got %v", got)
	}
}

func TestNormalizeProcedurePairs_WrongArity(t *testing.T) {
	if _, err := normalizeProcedurePairs(json.RawMessage(`[[1,2,3]]`)); err == nil {
		t.Fatal("expected error for a 3-element pair")
	}
	if _, err := normalizeProcedurePairs(json.RawMessage(`[[1]]`)); err == nil {
		t.Fatal("expected error for a 1-element pair")
	}
}

func TestNormalizeProcedurePairs_Empty(t *testing.T) {
	for _, raw := range []string{``, `null`, `""`} {
		got, err := normalizeProcedurePairs(json.RawMessage(raw))
		if err != nil || got != nil {
			t.Errorf("raw %q: got %v, err %v", raw, got, err)
		}
	}
}

func TestNormalizeLabEvents_Structured(t *testing.T) {
	got, err := normalizeLabEvents(json.RawMessage(`[["51221","35.5","abnormal","36-46"]]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || len(got[0]) != 4 || got[0][0] != "51221" {
		t.Errorf("got %v", got)
	}
}

func TestNormalizeLabEvents_FlatString(t *testing.T) {
	got, err := normalizeLabEvents(json.RawMessage(`"51221,35.5,abnormal,36-46,50912,1.2,normal,0.5-1.2"`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(got))
	}
	if got[1][0] != "50912" {
		t.Errorf("second group should start at 50912, got %v", got[1])
	}
}

func TestNormalizeLabEvents_IndivisibleFlatString(t *testing.T) {
	if _, err := normalizeLabEvents(json.RawMessage(`"a,b,c"`)); err == nil {
		t.Fatal("expected error for 3 values with group size 4")
	}
}

func TestNormalizeLabEvents_EmptyGroup(t *testing.T) {
	if _, err := normalizeLabEvents(json.RawMessage(`[[]]`)); err == nil {
		t.Fatal("expected error for an empty group")
	}
}

func TestReportInputNormalize_DRGBounds(t *testing.T) {
	five := 5
	in := &ReportInput{DRGSeverity: &five, DRGMortality: &five}
	_, err := in.Normalize()
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestReportInputNormalize_CollectsAllFields(t *testing.T) {
	bad := -1
	in := &ReportInput{
		DRGSeverity: &bad,
		CPTCodes:    json.RawMessage(`42`),
		LabEvents:   json.RawMessage(`"a,b,c"`),
	}
	_, err := in.Normalize()
	if err == nil {
		t.Fatal("expected validation error")
	}
}
