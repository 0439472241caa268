package validate

import (
	"errors"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/moonshine/internal/apperr"
)

type params struct {
	Limit     *int
	Threshold *float64
	Kind      string
	Tags      []string
}

func (p *params) validate() error {
	return Struct(p,
		validation.Field(&p.Limit, IntBetween(1, 10)),
		validation.Field(&p.Threshold, FloatBetween(0, 1)),
		validation.Field(&p.Kind, OneOf([]string{"a", "b"})),
		validation.Field(&p.Tags, validation.Each(OneOf([]string{"x", "y"}))),
	)
}

func ptr[T any](v T) *T { return &v }

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		p       params
		wantErr bool
	}{
		{"all nil", params{}, false},
		{"valid", params{Limit: ptr(10), Threshold: ptr(0.0), Kind: "a", Tags: []string{"x"}}, false},
		{"zero limit", params{Limit: ptr(0)}, true},
		{"limit too big", params{Limit: ptr(11)}, true},
		{"threshold above one", params{Threshold: ptr(1.5)}, true},
		{"negative threshold", params{Threshold: ptr(-0.1)}, true},
		{"unknown kind", params{Kind: "c"}, true},
		{"unknown tag", params{Tags: []string{"x", "z"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrValidation), "got %v", err)
		})
	}
}

func TestStruct_MessageNamesField(t *testing.T) {
	p := params{Limit: ptr(0)}
	err := p.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Limit")
	assert.Contains(t, err.Error(), "between 1 and 10")
}
