package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestRequestBodyParser_Get(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		key         string
		want        string
	}{
		{
			name:        "json string",
			body:        `{"phone":"5551234567"}`,
			contentType: "application/json",
			key:         "phone",
			want:        "5551234567",
		},
		{
			name:        "json number",
			body:        `{"amount":12.5}`,
			contentType: "application/json",
			key:         "amount",
			want:        "12.5",
		},
		{
			name:        "json value is trimmed",
			body:        `{"name":"  Ana  "}`,
			contentType: "application/json",
			key:         "name",
			want:        "Ana",
		},
		{
			name:        "form value",
			body:        "pin=123456&phone=555",
			contentType: "application/x-www-form-urlencoded",
			key:         "pin",
			want:        "123456",
		},
		{
			name:        "control characters are stripped",
			body:        "name=A%00na",
			contentType: "application/x-www-form-urlencoded",
			key:         "name",
			want:        "Ana",
		},
		{
			name:        "missing key",
			body:        `{"phone":"1"}`,
			contentType: "application/json",
			key:         "pin",
			want:        "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)

			p := NewRequestBodyParser(req)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := p.Get(tt.key); got != tt.want {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestRequestBodyParser_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"broken json", `{"phone":`, errMalformedBody},
		{"broken form", "a=%zz", errMalformedBody},
		{"too large", "a=" + strings.Repeat("x", maxBodyBytes), errBodyTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := NewRequestBodyParser(req).Parse()
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("   "))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := p.Get("anything"); got != "" {
		t.Errorf("Get() = %q on empty body", got)
	}
}

func TestRequestBodyParser_Int64s(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []int64
		wantErr bool
	}{
		{name: "json numbers", body: `{"order":[3,1,2]}`, want: []int64{3, 1, 2}},
		{name: "json strings", body: `{"order":["7","8"]}`, want: []int64{7, 8}},
		{name: "form values", body: "order=4&order=5", want: []int64{4, 5}},
		{name: "missing", body: `{"other":1}`, want: nil},
		{name: "not a list", body: `{"order":5}`, wantErr: true},
		{name: "not integers", body: `{"order":["x"]}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			p := NewRequestBodyParser(req)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			got, err := p.Int64s("order")
			if tt.wantErr {
				if !errors.Is(err, errMalformedBody) {
					t.Errorf("Int64s() error = %v, want malformed body", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Int64s() error = %v", err)
			}
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Int64s() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name *string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := decodeJSON(req, &dst); err != nil {
		t.Fatalf("empty body error = %v", err)
	}
	if dst.Name != nil {
		t.Errorf("empty body set name to %q", *dst.Name)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ana"}`))
	if err := decodeJSON(req, &dst); err != nil || dst.Name == nil || *dst.Name != "Ana" {
		t.Errorf("decodeJSON() = %v, name %v", err, dst.Name)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":1}`))
	if err := decodeJSON(req, &dst); !errors.Is(err, errMalformedBody) {
		t.Errorf("type mismatch error = %v, want malformed body", err)
	}
}
