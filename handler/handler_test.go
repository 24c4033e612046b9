package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchly/backend/handler"
	"github.com/churchly/backend/pkg/binder"
	"github.com/churchly/backend/pkg/tenant"
)

type createRequest struct {
	Name string `json:"name"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) handler.JSONResponse {
	t.Helper()
	var body handler.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("binds and renders json", func(t *testing.T) {
		t.Parallel()

		h := handler.Wrap(func(ctx handler.Context, req createRequest) handler.Response {
			return handler.JSON(map[string]string{"name": req.Name}, handler.WithJSONStatus(http.StatusCreated))
		}, handler.WithBinders[createRequest](binder.JSON()))

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Grace"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
		body := decode(t, rec)
		assert.Equal(t, map[string]any{"name": "Grace"}, body.Data)
		assert.Nil(t, body.Error)
	})

	t.Run("binder failure is a bad request", func(t *testing.T) {
		t.Parallel()

		called := false
		h := handler.Wrap(func(ctx handler.Context, req createRequest) handler.Response {
			called = true
			return handler.Empty()
		}, handler.WithBinders[createRequest](binder.JSON()))

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h(rec, req)

		assert.False(t, called)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad_request", decode(t, rec).Error.Code)
	})

	t.Run("wrong content type", func(t *testing.T) {
		t.Parallel()

		h := handler.Wrap(func(ctx handler.Context, req createRequest) handler.Response {
			return handler.Empty()
		}, handler.WithBinders[createRequest](binder.JSON()))

		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`name=x`))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		h(rec, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("nil response", func(t *testing.T) {
		t.Parallel()

		var got error
		h := handler.Wrap(func(ctx handler.Context, req struct{}) handler.Response {
			return nil
		}, handler.WithErrorHandler[struct{}](func(ctx handler.Context, err error) {
			got = err
			ctx.ResponseWriter().WriteHeader(http.StatusTeapot)
		}))

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.ErrorIs(t, got, handler.ErrNilResponse)
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("fail routes to error handler", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		var got error
		h := handler.Wrap(func(ctx handler.Context, req struct{}) handler.Response {
			return handler.Fail(boom)
		}, handler.WithErrorHandler[struct{}](func(ctx handler.Context, err error) {
			got = err
		}))

		h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.ErrorIs(t, got, boom)
	})

	t.Run("decorators run outermost first", func(t *testing.T) {
		t.Parallel()

		var order []string
		mark := func(name string) handler.Decorator[struct{}] {
			return func(next handler.HandlerFunc[struct{}]) handler.HandlerFunc[struct{}] {
				return func(ctx handler.Context, req struct{}) handler.Response {
					order = append(order, name)
					return next(ctx, req)
				}
			}
		}

		h := handler.Wrap(func(ctx handler.Context, req struct{}) handler.Response {
			order = append(order, "handler")
			return handler.Empty()
		}, handler.WithDecorators(mark("outer"), mark("inner")))

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, []string{"outer", "inner", "handler"}, order)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestContextTenant(t *testing.T) {
	t.Parallel()

	h := handler.Wrap(func(ctx handler.Context, req struct{}) handler.Response {
		tn, ok := ctx.Tenant()
		if !ok {
			return handler.Fail(handler.ErrNotFound)
		}
		return handler.JSON(tn.Slug)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx, release := tenant.Bind(req.Context(), &tenant.Tenant{ID: 3, Slug: "grace"})
	defer release()

	rec := httptest.NewRecorder()
	h(rec, req.WithContext(ctx))
	assert.Equal(t, "grace", decode(t, rec).Data)

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJSONError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "http error", err: handler.ErrPaymentRequired, status: http.StatusPaymentRequired, code: "payment_required"},
		{name: "joined http error", err: errors.Join(handler.ErrConflict, errors.New("dup")), status: http.StatusConflict, code: "conflict"},
		{name: "plain error", err: errors.New("db password is hunter2"), status: http.StatusInternalServerError, code: "internal_server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			require.NoError(t, handler.JSONError(tt.err).Render(rec, httptest.NewRequest(http.MethodGet, "/", nil)))

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotContains(t, rec.Body.String(), "hunter2")
		})
	}

	t.Run("validation error", func(t *testing.T) {
		t.Parallel()

		v := handler.NewValidationError()
		v.Add("name", "required")

		rec := httptest.NewRecorder()
		require.NoError(t, handler.JSONError(v.Err()).Render(rec, httptest.NewRequest(http.MethodGet, "/", nil)))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, "validation_error", body.Error.Code)
		assert.Equal(t, []string{"required"}, body.Error.Details["name"])
	})
}

func TestValidationError(t *testing.T) {
	t.Parallel()

	v := handler.NewValidationError()
	assert.True(t, v.IsEmpty())
	assert.NoError(t, v.Err())

	v.Add("hostname", "invalid")
	assert.True(t, v.Has("hostname"))
	assert.False(t, v.Has("name"))
	assert.EqualError(t, v.Err(), "validation error: hostname: invalid")
}

func TestNewErrorHandler(t *testing.T) {
	t.Parallel()

	domainErr := errors.New("plan limit reached")
	var logs bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logs, nil))

	classify := func(err error) error {
		if errors.Is(err, domainErr) {
			return errors.Join(handler.ErrPaymentRequired, err)
		}
		return err
	}

	h := handler.Wrap(func(ctx handler.Context, req struct{}) handler.Response {
		return handler.Fail(domainErr)
	}, handler.WithErrorHandler[struct{}](handler.NewErrorHandler(log, classify)))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/members", nil))

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, "payment_required", decode(t, rec).Error.Code)

	var entry map[string]any
	require.NoError(t, json.NewDecoder(io.Reader(&logs)).Decode(&entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, float64(http.StatusPaymentRequired), entry["status_code"])
	assert.Equal(t, "/api/members", entry["path"])
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusNotFound, handler.StatusOf(handler.ErrNotFound))
	assert.Equal(t, http.StatusUnprocessableEntity, handler.StatusOf(handler.ValidationError{"x": {"y"}}))
	assert.Equal(t, http.StatusInternalServerError, handler.StatusOf(errors.New("x")))
}
