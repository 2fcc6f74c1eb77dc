package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

type sampleInput struct {
	Name      string   `json:"name" validate:"required,notblank"`
	YearLevel null.Int `json:"year_level" validate:"omitempty,min=1,max=6"`
	Internal  string   `json:"-"`
}

func TestInitValidators(t *testing.T) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)

	tests := []struct {
		name  string
		input sampleInput
		want  map[string]string
	}{
		{name: "required", input: sampleInput{}, want: map[string]string{"name": "this field is required"}},
		{name: "blank", input: sampleInput{Name: "  \t"}, want: map[string]string{"name": "this field cannot be blank"}},
		{name: "null value", input: sampleInput{Name: "BSM 1-A", YearLevel: null.Int{}}},
		{
			name:  "underlying value",
			input: sampleInput{Name: "BSM 1-A", YearLevel: null.IntFrom(9)},
			want:  map[string]string{"year_level": "year_level must be 6 or less"},
		},
		{name: "valid", input: sampleInput{Name: "BSM 1-A", YearLevel: null.IntFrom(2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.input)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			require.IsType(t, validator.ValidationErrors{}, err)

			got := make(map[string]string)
			for _, fe := range err.(validator.ValidationErrors) {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Grace Hopper", CleanString("  Grace Hopper\n"))
	assert.Equal(t, "grace@test.cd", CleanString(" GRACE@test.cd ", true))
	assert.Equal(t, "", CleanString("   "))
}
