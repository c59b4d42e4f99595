package rest

import (
	"html"
	"strings"

	"github.com/gin-gonic/gin"
)

func makePage(title, contents string) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head>`)
	b.WriteString(`<meta name="viewport" content="width=device-width,user-scalable=0">`)
	b.WriteString("<title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title></head><body>")
	b.WriteString(contents)
	b.WriteString("</body></html>")
	return b.String()
}

func sendPage(c *gin.Context, status int, title, contents string) {
	c.Data(status, "text/html; charset=utf-8", []byte(makePage(title, contents)))
}

func settingsForm(networks []string) string {
	var b strings.Builder
	b.WriteString("<h1>Wi-Fi Settings</h1><p>Please enter your password by selecting the SSID.</p>")
	b.WriteString(`<form method="get" action="setap"><label>SSID: </label><select name="ssid">`)
	for _, name := range networks {
		escaped := html.EscapeString(name)
		b.WriteString(`<option value="` + escaped + `">` + escaped + "</option>")
	}
	b.WriteString(`</select><br>Password: <input name="pass" maxlength=64 type="password"><br>`)
	b.WriteString(`Tally 1: <input name="tally1" maxlength=10><br>`)
	b.WriteString(`Tally 2: <input name="tally2" maxlength=10><br>`)
	b.WriteString(`Tally 3: <input name="tally3" maxlength=10><br>`)
	b.WriteString(`Use Strip Lights: <input name="useStrip" type="checkbox"><br>`)
	b.WriteString(`Use Inverted Relay: <input name="useInvert" type="checkbox"><br>`)
	b.WriteString(`<input type="submit"></form>`)
	return b.String()
}

func setupCompleteBody(ssid string) string {
	return `<h1>Setup complete.</h1><p>device will be connected to "` +
		html.EscapeString(ssid) + `" after the restart.</p>`
}

func setupFailedBody(reason string) string {
	return "<h1>Setup failed.</h1><p>" + html.EscapeString(reason) +
		`</p><p><a href="/settings">Back to Wi-Fi Settings</a></p>`
}

const (
	apInfoBody  = `<h1>AP mode</h1><p><a href="/settings">Wi-Fi Settings</a></p>`
	staInfoBody = `<h1>STA mode</h1><p><a href="/reset">Reset Wi-Fi Settings</a></p>`
	resetBody   = `<h1>Wi-Fi settings was reset.</h1><p>Please reset device.</p>`
)
