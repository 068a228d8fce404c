package account_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trestleapp/trestle/modules/account"
)

func formRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		form      url.Values
		rules     []account.Rule
		wantErrs  map[string]bool
		wantValid map[string]string
	}{
		{
			name:      "valid email is lowercased",
			form:      url.Values{"email": {" Ada@Example.COM "}},
			rules:     []account.Rule{account.RequiredEmail("email")},
			wantErrs:  map[string]bool{},
			wantValid: map[string]string{"email": "ada@example.com"},
		},
		{
			name:      "malformed email",
			form:      url.Values{"email": {"not-an-email"}},
			rules:     []account.Rule{account.RequiredEmail("email")},
			wantErrs:  map[string]bool{"email": true},
			wantValid: map[string]string{},
		},
		{
			name:      "missing email",
			form:      url.Values{},
			rules:     []account.Rule{account.RequiredEmail("email")},
			wantErrs:  map[string]bool{"email": true},
			wantValid: map[string]string{},
		},
		{
			name:      "password below minimum length",
			form:      url.Values{"password": {"seven77"}},
			rules:     []account.Rule{account.RequiredPassword("password")},
			wantErrs:  map[string]bool{"password": true},
			wantValid: map[string]string{},
		},
		{
			name:      "password at minimum length",
			form:      url.Values{"password": {"eight888"}},
			rules:     []account.Rule{account.RequiredPassword("password")},
			wantErrs:  map[string]bool{},
			wantValid: map[string]string{"password": "eight888"},
		},
		{
			name:      "multibyte characters count as one",
			form:      url.Values{"password": {"pässwörd"}},
			rules:     []account.Rule{account.RequiredPassword("password")},
			wantErrs:  map[string]bool{},
			wantValid: map[string]string{"password": "pässwörd"},
		},
		{
			name:      "required string rejects whitespace",
			form:      url.Values{"auth_key": {"   "}},
			rules:     []account.Rule{account.RequiredString("auth_key")},
			wantErrs:  map[string]bool{"auth_key": true},
			wantValid: map[string]string{},
		},
		{
			name:      "bool normalizes checkbox spellings",
			form:      url.Values{"remember": {"on"}},
			rules:     []account.Rule{account.OptionalBool("remember")},
			wantErrs:  map[string]bool{},
			wantValid: map[string]string{"remember": "true"},
		},
		{
			name:      "bool defaults to false",
			form:      url.Values{},
			rules:     []account.Rule{account.OptionalBool("remember")},
			wantErrs:  map[string]bool{},
			wantValid: map[string]string{"remember": "false"},
		},
		{
			name: "mixed fields report independently",
			form: url.Values{"email": {"ada@example.com"}, "password": {"short"}},
			rules: []account.Rule{
				account.RequiredEmail("email"),
				account.RequiredPassword("password"),
			},
			wantErrs:  map[string]bool{"password": true},
			wantValid: map[string]string{"email": "ada@example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			form, errs, valid := account.Validate(formRequest(tt.form), tt.rules...)

			assert.Equal(t, account.Errors(tt.wantErrs), errs)
			assert.Equal(t, tt.wantValid, valid)
			assert.Equal(t, len(tt.rules), len(form), "every field is echoed for redisplay")
			assert.Equal(t, len(tt.wantErrs) == 0, errs.Valid())
		})
	}
}
