// Package handler implements the HTTP routes of the gateway. Every route
// validates its input before touching the chain and turns errors into the
// response envelope exactly once.
package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/xueqianLu/dscgateway/internal/contracts"
	"github.com/xueqianLu/dscgateway/internal/format"
	"github.com/xueqianLu/dscgateway/internal/middleware"
	"github.com/xueqianLu/dscgateway/internal/response"
	"github.com/xueqianLu/dscgateway/internal/signer"
	"github.com/xueqianLu/dscgateway/internal/validator"
)

const invalidBody = "Invalid request body"

// base carries what every route handler needs.
type base struct {
	log    logrus.FieldLogger
	signer *signer.Signer
}

func (b *base) logger(r *http.Request) logrus.FieldLogger {
	return middleware.Logger(r.Context(), b.log)
}

// decode reads a JSON object from the request body into dst and also
// returns its raw fields for presence checks.
func decode(w http.ResponseWriter, r *http.Request, dst any) (map[string]any, bool) {
	data, err := io.ReadAll(io.LimitReader(r.Body, middleware.MaxBodyBytes))
	if err != nil {
		response.BadRequest(w, invalidBody)
		return nil, false
	}

	var fields map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil || fields == nil {
		response.BadRequest(w, invalidBody)
		return nil, false
	}
	if dst != nil {
		if err := json.Unmarshal(data, dst); err != nil {
			response.BadRequest(w, invalidBody)
			return nil, false
		}
	}
	return fields, true
}

// require checks fields plus the signing credential. A managed account
// stands in for the private key when managed keys are enabled.
func (b *base) require(w http.ResponseWriter, body map[string]any, fields ...string) bool {
	credential := "privateKey"
	if b.signer.ManagedEnabled() && validator.RequiredFields(body, "account") == "" {
		credential = "account"
	}
	if msg := validator.RequiredFields(body, append(fields, credential)...); msg != "" {
		response.BadRequest(w, msg)
		return false
	}
	return true
}

// identity resolves the request credentials. Failures are the caller's
// fault and answered with 400.
func (b *base) identity(w http.ResponseWriter, creds credentials) (*signer.Identity, bool) {
	var account string
	if b.signer.ManagedEnabled() {
		account = creds.Account
	}
	id, err := b.signer.Resolve(creds.PrivateKey, account)
	if err != nil {
		response.BadRequest(w, err.Error())
		return nil, false
	}
	return id, true
}

// fail writes the error response for a failed chain operation.
func (b *base) fail(w http.ResponseWriter, r *http.Request, err error, operation string) {
	var insufficient *contracts.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		response.BadRequest(w, insufficient.Error())
		return
	}
	var precision *format.PrecisionError
	if errors.As(err, &precision) {
		response.BadRequest(w, precision.Error())
		return
	}

	resp := response.HandleError(b.logger(r), err, operation)
	var stepErr *contracts.StepError
	if errors.As(err, &stepErr) {
		resp.Step = stepErr.Step
		if len(stepErr.Completed) > 0 {
			resp.CompletedSteps = stepErr.Completed
		}
	}
	response.WriteJSON(w, http.StatusInternalServerError, resp)
}

// queryAddress reads and checks an address query parameter. missing and
// invalid are the messages for an absent or malformed value.
func queryAddress(w http.ResponseWriter, r *http.Request, name, missing, invalid string) (string, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		response.BadRequest(w, missing)
		return "", false
	}
	addr, err := validator.FormatAddress(v)
	if err != nil {
		response.BadRequest(w, invalid)
		return "", false
	}
	return addr, true
}

// fieldAmount returns a body field as an amount string. Numbers keep their
// literal text.
func fieldAmount(body map[string]any, name string) Amount {
	switch v := body[name].(type) {
	case string:
		return Amount(v)
	case json.Number:
		return Amount(v.String())
	}
	return ""
}
