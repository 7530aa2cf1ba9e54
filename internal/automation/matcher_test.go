package automation

import (
	"testing"

	"homehub/internal/models"

	"github.com/stretchr/testify/assert"
)

func numberValue(values ...string) models.CurrentValue {
	instances := make([]models.Instance, len(values))
	for i, v := range values {
		instances[i] = models.Instance{Index: i, Value: v}
	}
	return models.CurrentValue{Components: []models.Component{
		{ComponentID: "gas", Datatype: models.DatatypeNumber, Instances: instances},
	}}
}

func TestMatchesNumberOperators(t *testing.T) {
	cases := []struct {
		name  string
		value string
		expr  string
		want  bool
	}{
		{"gte boundary hits", "600", ">=600", true},
		{"gte just below misses", "599.999", ">=600", false},
		{"gt strict", "600", ">600", false},
		{"gt above", "600.001", ">600", true},
		{"lt", "19.5", "<20", true},
		{"lte boundary", "20", "<=20", true},
		{"plain equality", "42", "42", true},
		{"plain inequality", "42.1", "42", false},
		{"operator with space", "650", ">= 600", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Matches(numberValue(tc.value), tc.expr))
		})
	}
}

func TestMatchesAnyInstanceAnyComponent(t *testing.T) {
	cv := models.CurrentValue{Components: []models.Component{
		{ComponentID: "head_a", Datatype: models.DatatypeNumber, Instances: []models.Instance{
			{Index: 0, Value: "100"},
			{Index: 1, Value: "700"},
		}},
		{ComponentID: "head_b", Datatype: models.DatatypeNumber, Instances: []models.Instance{
			{Index: 0, Value: "50"},
		}},
	}}
	assert.True(t, Matches(cv, ">600"), "second instance crosses the threshold")
	assert.False(t, Matches(cv, ">800"))
}

func TestMatchesBooleanCaseInsensitive(t *testing.T) {
	cv := models.CurrentValue{Components: []models.Component{
		{ComponentID: "motion", Datatype: models.DatatypeBoolean, Instances: []models.Instance{
			{Index: 0, Value: "TRUE"},
		}},
	}}
	assert.True(t, Matches(cv, "true"))
	assert.True(t, Matches(cv, "True"))
	assert.False(t, Matches(cv, "false"))
}

func TestMatchesStringExact(t *testing.T) {
	cv := models.CurrentValue{Components: []models.Component{
		{ComponentID: "mode", Datatype: models.DatatypeString, Instances: []models.Instance{
			{Index: 0, Value: "eco"},
		}},
	}}
	assert.True(t, Matches(cv, "eco"))
	assert.False(t, Matches(cv, "Eco"))
}

func TestMatchesUnparseableNumberNeverMatches(t *testing.T) {
	assert.False(t, Matches(numberValue("not-a-number"), ">600"))
	assert.False(t, Matches(numberValue("650"), ">abc"))
	assert.False(t, Matches(models.CurrentValue{}, ">600"))
}
