package emailsvc

import (
	"bytes"
	"net/mail"
	"strings"
	"testing"
	texttmpl "text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lectern/core"
)

func TestConsoleService(t *testing.T) {
	conf := &core.Config{AppName: "Lectern", DefaultFromEmail: mail.Address{Name: "Lectern", Address: "noreply@lectern.test"}}
	svc := NewConsoleServiceMock(conf)
	var out bytes.Buffer
	svc.out = &out

	tmpl := texttmpl.Must(texttmpl.New("t").Parse("Hello {{.}}"))
	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{{Address: "alice@lectern.test"}}, Subject: "Welcome", Template: tmpl, TemplateData: "alice"},
		&core.EmailMessage{To: []mail.Address{{Address: "bob@lectern.test"}}, Cc: []mail.Address{{Address: "dean@lectern.test"}}, Subject: "Hi", BodyStr: "plain"},
		&core.EmailMessage{Subject: "nobody", BodyStr: "dropped"},
		&core.EmailMessage{To: []mail.Address{{Address: "carol@lectern.test"}}, Subject: "empty"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 2)
	assert.Equal(t, "Hello alice", sent[0].TextContent)
	assert.Equal(t, "plain", sent[1].TextContent)

	printed := out.String()
	assert.Contains(t, printed, "Subject: [Lectern] Welcome\r\n")
	assert.Contains(t, printed, `From: "Lectern" <noreply@lectern.test>`)
	assert.Contains(t, printed, "CC: <dean@lectern.test>\r\n")
	assert.Equal(t, 2, strings.Count(printed, "MIME-Version: 1.0"))
	assert.NotContains(t, printed, "dropped")
}
