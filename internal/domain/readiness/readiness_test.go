package readiness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTargetValidate(t *testing.T) {
	tests := []struct {
		name    string
		target  Target
		wantErr bool
	}{
		{name: "valid", target: Target{Name: "bank", URL: "https://bank.example/health"}},
		{name: "missing name", target: Target{URL: "http://bank"}, wantErr: true},
		{name: "relative url", target: Target{Name: "bank", URL: "/health"}, wantErr: true},
		{name: "unsupported scheme", target: Target{Name: "bank", URL: "ftp://bank/health"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.target.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTarget)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewReportAggregates(t *testing.T) {
	now := time.Now()

	empty := NewReport(nil, now)
	assert.True(t, empty.Ready())

	up := NewReport([]TargetResult{{Name: "a", Status: StatusUp}, {Name: "b", Status: StatusUp}}, now)
	assert.Equal(t, StatusUp, up.Status)

	down := NewReport([]TargetResult{{Name: "a", Status: StatusUp}, {Name: "b", Status: StatusDown}}, now)
	assert.Equal(t, StatusDown, down.Status)
	assert.False(t, down.Ready())

	var missing *Report
	assert.False(t, missing.Ready())
}
