package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmploymentEntryAcceptsBothEmployerKeys(t *testing.T) {
	var history map[string]EmploymentEntry
	require.NoError(t, json.Unmarshal([]byte(`{
		"employer1": {"name": "Acme Care", "position": "Aide"},
		"employer2": {"employer": "Sunrise Living", "duration": "1 year"},
		"employer3": {"name": "", "employer": "Oak Homes"}
	}`), &history))

	assert.Equal(t, "Acme Care", history["employer1"].Employer)
	assert.Equal(t, "Aide", history["employer1"].Position)
	assert.Equal(t, "Sunrise Living", history["employer2"].Employer)
	assert.Equal(t, "1 year", history["employer2"].Duration)
	assert.Equal(t, "Oak Homes", history["employer3"].Employer)
}

func TestEmploymentEntryEncodesEmployerAsName(t *testing.T) {
	data, err := json.Marshal(EmploymentEntry{Employer: "Acme Care", Position: "Aide"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Acme Care","position":"Aide","duration":"","reason_for_leaving":""}`, string(data))
}

func TestEmploymentEntryRejectsNonObject(t *testing.T) {
	var entry EmploymentEntry
	assert.Error(t, json.Unmarshal([]byte(`"Acme Care"`), &entry))
}
