package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSuccessOmitsEmptyData(t *testing.T) {
	resp := New(true, nil, "ignored", "ignored")
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.Empty(t, resp.Error)
	assert.Empty(t, resp.Details)

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true}`, string(raw))
}

func TestNewSuccessKeepsData(t *testing.T) {
	raw, err := json.Marshal(New(true, map[string]string{"a": "b"}, "", ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"a":"b"}}`, string(raw))
}

func TestNewFailureOmitsAbsentFields(t *testing.T) {
	raw, err := json.Marshal(New(false, map[string]string{"a": "b"}, "boom", ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":"boom"}`, string(raw))

	raw, err = json.Marshal(New(false, nil, "", ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false}`, string(raw))
}

func TestHandleErrorLogsAndWraps(t *testing.T) {
	logger, hook := test.NewNullLogger()

	resp := HandleError(logger, errors.New("execution reverted"), "fetch balance")
	assert.False(t, resp.Success)
	assert.Equal(t, "Failed to fetch balance", resp.Error)
	assert.Equal(t, "execution reverted", resp.Details)

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "fetch balance", hook.LastEntry().Data["operation"])
}

func TestHandleErrorDefaultLabel(t *testing.T) {
	resp := HandleError(nil, errors.New("x"), "")
	assert.Equal(t, "Failed to operation", resp.Error)
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	BadRequest(rec, "amount is required")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"success":false,"error":"amount is required"}`, rec.Body.String())
}
