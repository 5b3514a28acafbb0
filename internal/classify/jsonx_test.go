package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObjectStrict(t *testing.T) {
	obj, err := ExtractObject(`{"sentiment":"negative","topic":"delivery"}`)
	require.NoError(t, err)
	assert.Equal(t, "negative", obj["sentiment"])
	assert.Equal(t, "delivery", obj["topic"])
}

func TestExtractObjectSurroundingProse(t *testing.T) {
	text := "Sure! Here is the classification you asked for:\n```json\n" +
		`{"sentiment":"negative","topic":"billing"}` + "\n```\nLet me know if you need anything else."
	obj, err := ExtractObject(text)
	require.NoError(t, err)
	assert.Equal(t, "billing", obj["topic"])
}

func TestExtractObjectTrailingComma(t *testing.T) {
	obj, err := ExtractObject(`{"sentiment":"neutral","topic":"app",}`)
	require.NoError(t, err)
	assert.Equal(t, "app", obj["topic"])
}

func TestExtractObjectSmartQuotes(t *testing.T) {
	obj, err := ExtractObject(`{“sentiment”: “positive”, “topic”: “product”}`)
	require.NoError(t, err)
	assert.Equal(t, "positive", obj["sentiment"])
}

func TestExtractObjectSingleQuotes(t *testing.T) {
	obj, err := ExtractObject(`{'sentiment': 'negative', 'churn_risk': 'likely'}`)
	require.NoError(t, err)
	assert.Equal(t, "likely", obj["churn_risk"])
}

func TestExtractObjectPythonLiterals(t *testing.T) {
	obj, err := ExtractObject(`{"sentiment": "neutral", "extra": None, "flag": True}`)
	require.NoError(t, err)
	assert.Nil(t, obj["extra"])
	assert.Equal(t, true, obj["flag"])
}

func TestExtractObjectPythonLiteralsNoSpace(t *testing.T) {
	obj, err := ExtractObject(`{"sentiment":"neutral","extra":None,"flag":True,"other":False}`)
	require.NoError(t, err)
	assert.Nil(t, obj["extra"])
	assert.Equal(t, true, obj["flag"])
	assert.Equal(t, false, obj["other"])
}

func TestExtractObjectRawNewlineInString(t *testing.T) {
	obj, err := ExtractObject("{\"sentiment\": \"neg\native\", \"topic\": \"support\"}")
	require.NoError(t, err)
	assert.Equal(t, "support", obj["topic"])
}

func TestExtractObjectNoObject(t *testing.T) {
	_, err := ExtractObject("I could not classify this message, sorry.")
	require.Error(t, err)
}

func TestFieldFallback(t *testing.T) {
	text := `Result: sentiment: negative, churn_risk = "likely" and topic: 'billing'`
	fields := fieldFallback(text, classificationFields)
	assert.Equal(t, "negative", fields["sentiment"])
	assert.Equal(t, "likely", fields["churn_risk"])
	assert.Equal(t, "billing", fields["topic"])
}

func TestNormalizeIdempotentOnCleanInput(t *testing.T) {
	clean := `{"sentiment":"negative","topic":"delivery"}`
	assert.Equal(t, clean, Normalize(clean))
}
