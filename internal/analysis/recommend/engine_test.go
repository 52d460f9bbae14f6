package recommend

import (
	"testing"
	"time"

	apperrors "momentum-options/internal/errors"
	"momentum-options/internal/models"
)

func ptr(v float64) *float64 { return &v }

func baseInput() Input {
	return Input{
		Ticker:       "AAPL",
		Spot:         100,
		IV:           0.30,
		PerfLookback: -20,
		PerfRecent:   2,
		DTE:          45,
		Rate:         0.05,
		IVRank:       ptr(50),
		Now:          time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestRecommend_ValidEntry(t *testing.T) {
	rec, err := NewEngine(nil, DefaultRules()).Recommend(baseInput())
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Ticker != "AAPL" {
		t.Errorf("ticker = %s", rec.Ticker)
	}
	if !rec.Conditions.Hard.MajorDowntrend || !rec.EntryConditionsMet {
		t.Errorf("expected entry conditions met: %+v", rec.Conditions)
	}
	if rec.Signal != models.SignalShortMomentumOption {
		t.Errorf("signal = %s", rec.Signal)
	}
	if rec.Conditions.SoftScore < 0.66 {
		t.Errorf("soft score = %v", rec.Conditions.SoftScore)
	}
	if rec.ExpirationDate != "2024-02-29" {
		t.Errorf("expiration = %s, want 2024-02-29", rec.ExpirationDate)
	}
	if rec.Put.Strike == 0 || rec.PutSpread.StrikeLong == 0 {
		t.Errorf("both structures must be computed: %+v / %+v", rec.Put, rec.PutSpread)
	}
	if rec.EntryRules.RSIRange != [2]float64{40, 55} || rec.ExitRules.TimeStopDTE != 14 {
		t.Errorf("static rules not attached: %+v %+v", rec.EntryRules, rec.ExitRules)
	}
	if len(rec.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", rec.Warnings)
	}
}

func TestRecommend_HardConditionFails(t *testing.T) {
	in := baseInput()
	in.PerfLookback = -10

	rec, err := NewEngine(nil, DefaultRules()).Recommend(in)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Conditions.Hard.MajorDowntrend || rec.EntryConditionsMet {
		t.Errorf("hard condition should fail: %+v", rec.Conditions)
	}
	if rec.Signal != models.SignalWatch {
		t.Errorf("signal = %s, want WATCH", rec.Signal)
	}
}

func TestRecommend_SoftScore(t *testing.T) {
	e := NewEngine(nil, DefaultRules())

	tests := []struct {
		name      string
		recent    float64
		ivRank    *float64
		wantScore float64
		wantEntry bool
	}{
		{"all soft ok", 2, ptr(50), 1, true},
		{"short squeeze", 10, ptr(50), 0.5, false},
		{"iv rank high", 2, ptr(75), 0.5, false},
		{"iv rank missing", 2, nil, 0.5, false},
		{"nothing ok", 10, nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			in.PerfRecent = tt.recent
			in.IVRank = tt.ivRank

			rec, err := e.Recommend(in)
			if err != nil {
				t.Fatalf("Recommend: %v", err)
			}
			if rec.Conditions.SoftScore != tt.wantScore {
				t.Errorf("soft score = %v, want %v", rec.Conditions.SoftScore, tt.wantScore)
			}
			if rec.EntryConditionsMet != tt.wantEntry {
				t.Errorf("entry = %v, want %v", rec.EntryConditionsMet, tt.wantEntry)
			}
		})
	}
}

func TestRecommend_MissingIVRank(t *testing.T) {
	in := baseInput()
	in.IVRank = nil

	rec, err := NewEngine(nil, DefaultRules()).Recommend(in)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.IVRank != nil {
		t.Errorf("iv rank = %v, want nil", *rec.IVRank)
	}
	if rec.Conditions.Soft.IVRankOK {
		t.Error("missing iv rank must fail its soft condition")
	}
}

func TestRecommend_StructureSelection(t *testing.T) {
	tests := []struct {
		name   string
		iv     float64
		recent float64
		want   models.StructureType
	}{
		{"elevated iv", 0.50, -5, models.StructurePutSpread},
		{"weak recent momentum", 0.30, -1, models.StructurePutSpread},
		{"favourable", 0.30, -5, models.StructurePut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			in.IV = tt.iv
			in.PerfRecent = tt.recent
			rec, err := NewEngine(nil, DefaultRules()).Recommend(in)
			if err != nil {
				t.Fatalf("Recommend: %v", err)
			}
			if rec.Structure != tt.want {
				t.Errorf("structure = %s, want %s", rec.Structure, tt.want)
			}
		})
	}
}

func TestRecommend_ExtremeInputs(t *testing.T) {
	e := NewEngine(nil, DefaultRules())

	in := baseInput()
	in.IV = 1.0
	rec, err := e.Recommend(in)
	if err != nil {
		t.Fatalf("high vol: %v", err)
	}
	if rec.Put.Price <= 0 || rec.PutSpread.NetDebit <= 0 {
		t.Errorf("high vol prices %+v", rec.Put)
	}

	in = baseInput()
	in.DTE = 7
	rec, err = e.Recommend(in)
	if err != nil {
		t.Fatalf("short dte: %v", err)
	}
	if rec.Put.Greeks.Theta >= 0 {
		t.Errorf("theta = %v, want negative", rec.Put.Greeks.Theta)
	}
}

func TestRecommend_WithRSI(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 - float64(i)
	}
	in := baseInput()
	in.Closes = closes

	rec, err := NewEngine(nil, DefaultRules()).Recommend(in)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.RSI == nil {
		t.Fatal("expected RSI check")
	}
	if rec.RSI.Value != 0 || rec.RSI.InBand {
		t.Errorf("falling series RSI %+v", *rec.RSI)
	}

	in.Closes = closes[:5]
	rec, err = NewEngine(nil, DefaultRules()).Recommend(in)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.RSI != nil || len(rec.Warnings) != 1 {
		t.Errorf("short series should warn instead of reporting RSI: %+v %v", rec.RSI, rec.Warnings)
	}
}

func TestRecommend_InvalidInput(t *testing.T) {
	e := NewEngine(nil, DefaultRules())

	in := baseInput()
	in.DTE = 0
	if _, err := e.Recommend(in); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("dte 0: got %v", err)
	}

	in = baseInput()
	in.Spot = 0
	if _, err := e.Recommend(in); !apperrors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("spot 0: got %v", err)
	}
}
