package oauth

import (
	"errors"
	"html/template"
	"net/http"
)

// AuthorizePath serves the page that starts the flow.
const AuthorizePath = "/autorizar"

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="es">
<head><meta charset="utf-8"><title>Autorizar calendario</title></head>
<body>
<p>{{.Message}}</p>
{{if .Link}}<p><a href="{{.Link}}">Autorizar acceso a Google Calendar</a></p>{{end}}
</body>
</html>
`))

type pageData struct {
	Message string
	Link    string
}

func render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = page.Execute(w, data)
}

// AuthorizeHandler serves a page linking to the Google consent screen.
type AuthorizeHandler struct {
	flow *Flow
}

// NewAuthorizeHandler creates the handler for AuthorizePath.
func NewAuthorizeHandler(flow *Flow) *AuthorizeHandler {
	return &AuthorizeHandler{flow: flow}
}

// ServeHTTP implements http.Handler.
func (h *AuthorizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data := pageData{Message: "Abre el enlace para darme acceso a tu calendario.", Link: h.flow.AuthURL()}
	if h.flow.Authorized() {
		data.Message = "El calendario ya está autorizado. Puedes volver a autorizar si lo necesitas."
	}
	render(w, http.StatusOK, data)
}

// CallbackHandler receives the authorization redirect and stores the token.
type CallbackHandler struct {
	flow *Flow
}

// NewCallbackHandler creates the handler for CallbackPath.
func NewCallbackHandler(flow *Flow) *CallbackHandler {
	return &CallbackHandler{flow: flow}
}

// ServeHTTP implements http.Handler.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		h.flow.logger.Warn("authorization denied", "reason", reason)
		render(w, http.StatusBadRequest, pageData{Message: "❌ Autorización denegada: " + reason})
		return
	}

	code := q.Get("code")
	if code == "" {
		render(w, http.StatusBadRequest, pageData{Message: "❌ Falta el código de autorización."})
		return
	}

	if err := h.flow.Exchange(r.Context(), q.Get("state"), code); err != nil {
		if errors.Is(err, ErrInvalidState) {
			render(w, http.StatusBadRequest, pageData{Message: "❌ El enlace expiró. Vuelve a usar /autorizar."})
			return
		}
		h.flow.logger.Error("token exchange failed", "error", err)
		render(w, http.StatusBadGateway, pageData{Message: "❌ Error en autorización: " + err.Error()})
		return
	}

	render(w, http.StatusOK, pageData{Message: "✅ ¡Autorización exitosa! Ya puedo gestionar tu calendario."})
}
