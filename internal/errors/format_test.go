package errors

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForCLI_ProviderFailure(t *testing.T) {
	err := FromHTTPStatus("mapbox", 401, "")

	out := FormatForCLI(err)

	assert.Contains(t, out, "Error: HTTP 401")
	assert.Contains(t, out, "Provider: mapbox (request_error)")
	assert.Contains(t, out, "Hint: Check the provider API key")
	assert.Contains(t, out, "Code: ERR_302_PROVIDER_REQUEST")
}

func TestFormatForCLI_PlainErrorIsInternal(t *testing.T) {
	out := FormatForCLI(errors.New("something broke"))

	assert.Contains(t, out, "Error: something broke")
	assert.Contains(t, out, ErrCodeInternal)
	assert.NotContains(t, out, "Provider:")
}

func TestFormatForCLI_Nil(t *testing.T) {
	assert.Equal(t, "", FormatForCLI(nil))
}

func TestFormatJSON_ProviderFailure(t *testing.T) {
	// Given: a rate limited provider failure
	err := RateLimited("google_places", "OVER_QUERY_LIMIT", nil)

	// When: formatting as JSON
	data, ferr := FormatJSON(err)
	require.NoError(t, ferr)

	// Then: the taxonomy fields are present
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, ErrCodeProviderRateLimited, got["code"])
	assert.Equal(t, "rate_limited", got["kind"])
	assert.Equal(t, "google_places", got["provider"])
	assert.Equal(t, "PROVIDER", got["category"])
	assert.Equal(t, false, got["retryable"])
}

func TestFormatJSON_Nil(t *testing.T) {
	data, err := FormatJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestToJSON_OmitsEmptyProvider(t *testing.T) {
	data, err := json.Marshal(ToJSON(InvalidQuery("")))
	require.NoError(t, err)

	assert.NotContains(t, string(data), `"provider"`)
	assert.Contains(t, string(data), `"suggestion"`)
}

func TestFormatForLog_Attributes(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	attrs := FormatForLog(Unavailable("mapbox", "request failed", cause))

	require.Equal(t, 0, len(attrs)%2)
	kv := map[string]any{}
	for i := 0; i < len(attrs); i += 2 {
		kv[attrs[i].(string)] = attrs[i+1]
	}
	assert.Equal(t, ErrCodeProviderUnavailable, kv["error_code"])
	assert.Equal(t, "mapbox", kv["provider"])
	assert.Equal(t, "unavailable", kv["kind"])
	assert.Equal(t, cause.Error(), kv["cause"])
}

func TestFormatForLog_PlainError(t *testing.T) {
	assert.Equal(t, []any{"error", "plain"}, FormatForLog(errors.New("plain")))
	assert.Nil(t, FormatForLog(nil))
}
