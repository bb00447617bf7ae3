// Package templates renders the storefront's transactional emails.
package templates

import (
	"bytes"
	"fmt"
	htmpl "html/template"
	texttpl "text/template"
	"time"
)

// Data is the superset of fields the templates reference. Unused fields are
// simply ignored by a given template.
type Data struct {
	Name      string
	Email     string
	StoreName string
	ResetURL  string
	ExpiresIn time.Duration
	Support   string
}

const welcomeHTML = `<!DOCTYPE html>
<html>
<body style="font-family:Arial,Helvetica,sans-serif;background:#f6f6f6;padding:24px">
  <div style="max-width:560px;margin:auto;background:#fff;border-radius:8px;padding:32px">
    <h2 style="color:#222">Welcome to {{.StoreName}}, {{.Name}}!</h2>
    <p>Your account has been created with the email <strong>{{.Email}}</strong>.</p>
    <p>You can sign in and start shopping right away.</p>
    {{if .Support}}<p style="color:#888;font-size:12px">Need help? Visit <a href="{{.Support}}">our support page</a>.</p>{{end}}
  </div>
</body>
</html>`

const welcomeText = `Welcome to {{.StoreName}}, {{.Name}}!

Your account has been created with the email {{.Email}}.
You can sign in and start shopping right away.
`

const passwordResetHTML = `<!DOCTYPE html>
<html>
<body style="font-family:Arial,Helvetica,sans-serif;background:#f6f6f6;padding:24px">
  <div style="max-width:560px;margin:auto;background:#fff;border-radius:8px;padding:32px">
    <h2 style="color:#222">Reset your password</h2>
    <p>Hi {{.Name}}, we received a request to reset the password for your {{.StoreName}} account.</p>
    <p style="margin:24px 0">
      <a href="{{.ResetURL}}" style="background:#ff6b6b;color:#fff;padding:12px 24px;border-radius:6px;text-decoration:none">Reset password</a>
    </p>
    <p>This link expires in {{minutes .ExpiresIn}} minutes. If you did not request a reset, you can ignore this email; your password stays unchanged.</p>
  </div>
</body>
</html>`

const passwordResetText = `Hi {{.Name}},

We received a request to reset the password for your {{.StoreName}} account.
Open the link below within {{minutes .ExpiresIn}} minutes to choose a new password:

{{.ResetURL}}

If you did not request a reset, ignore this email; your password stays unchanged.
`

var funcs = map[string]any{
	"minutes": func(d time.Duration) int {
		m := int(d.Minutes())
		if m < 1 {
			m = 1
		}
		return m
	},
}

var (
	htmlTemplates = map[string]*htmpl.Template{
		"welcome":        htmpl.Must(htmpl.New("welcome").Funcs(funcs).Parse(welcomeHTML)),
		"password_reset": htmpl.Must(htmpl.New("password_reset").Funcs(funcs).Parse(passwordResetHTML)),
	}
	textTemplates = map[string]*texttpl.Template{
		"welcome":        texttpl.Must(texttpl.New("welcome").Funcs(funcs).Parse(welcomeText)),
		"password_reset": texttpl.Must(texttpl.New("password_reset").Funcs(funcs).Parse(passwordResetText)),
	}
	subjects = map[string]string{
		"welcome":        "Welcome to %s",
		"password_reset": "Reset your %s password",
	}
)

// Render produces subject, text, and HTML bodies for the named template.
func Render(name string, d Data) (subject, text, html string, err error) {
	ht, ok := htmlTemplates[name]
	if !ok {
		return "", "", "", fmt.Errorf("unknown email template %q", name)
	}
	var hb bytes.Buffer
	if err := ht.Execute(&hb, d); err != nil {
		return "", "", "", err
	}
	var tb bytes.Buffer
	if err := textTemplates[name].Execute(&tb, d); err != nil {
		return "", "", "", err
	}
	return fmt.Sprintf(subjects[name], d.StoreName), tb.String(), hb.String(), nil
}

// DataFromMap rebuilds template Data from an EmailJob's loosely-typed payload.
func DataFromMap(m map[string]any) Data {
	d := Data{}
	if m == nil {
		return d
	}
	str := func(k string) string {
		if v, ok := m[k]; ok {
			return fmt.Sprintf("%v", v)
		}
		return ""
	}
	d.Name = str("name")
	d.Email = str("email")
	d.StoreName = str("store_name")
	d.ResetURL = str("reset_url")
	d.Support = str("support_url")
	if v, ok := m["expires_in_minutes"]; ok {
		switch n := v.(type) {
		case float64: // json numbers decode as float64
			d.ExpiresIn = time.Duration(n) * time.Minute
		case int:
			d.ExpiresIn = time.Duration(n) * time.Minute
		}
	}
	return d
}
