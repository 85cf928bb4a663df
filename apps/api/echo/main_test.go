package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/lectern/apps/api/echo"
	"github.com/trezcool/lectern/core"
	"github.com/trezcool/lectern/core/enrollment"
	"github.com/trezcool/lectern/core/lecture"
	"github.com/trezcool/lectern/core/user"
	emailsvc "github.com/trezcool/lectern/services/email"
	logsvc "github.com/trezcool/lectern/services/logger"
	"github.com/trezcool/lectern/storage/database/sqlx"
	"github.com/trezcool/lectern/storage/files"
	"github.com/trezcool/lectern/tests"
)

const (
	adminPwd    = "Kitambala#2024"
	lecturerPwd = "Chalkboard!77"
	studentPwd  = "Notebook&Pens9"
)

// transcriberFunc and correctorFunc stand in for the hosted models.
type (
	transcriberFunc func(audio string) (string, error)
	correctorFunc   func(text string) ([]string, error)
)

func (f transcriberFunc) Transcribe(_ context.Context, audio io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(audio)
	if err != nil {
		return "", err
	}
	return f(string(data))
}

func (f correctorFunc) Correct(_ context.Context, text string) ([]string, error) {
	return f(text)
}

type testEnv struct {
	app         *echoapi.Server
	db          *sqlx.DB
	usrRepo     user.Repository
	enrollRepo  enrollment.Repository
	lectureRepo lecture.Repository
	usrSvc      *user.Service
	lectureSvc  *lecture.Service
	audioDir    string

	mu          sync.Mutex
	transcriber transcriberFunc
	corrector   correctorFunc
}

func (env *testEnv) setTranscriber(f transcriberFunc) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.transcriber = f
}

func (env *testEnv) setCorrector(f correctorFunc) {
	env.mu.Lock()
	defer env.mu.Unlock()
	env.corrector = f
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	conf := &core.Config{
		AppName:  "Lectern",
		Env:      "TEST",
		TestMode: true,
		Server:   core.ServerConfig{BodyLimit: "16M"},
		Session: core.SessionConfig{
			Name:   "lectern_session",
			Dir:    t.TempDir(),
			Key:    "0123456789abcdef0123456789abcdef",
			MaxAge: time.Hour,
		},
	}
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)

	// set up DB & repos
	db := testutil.PrepareDB(t)
	env := &testEnv{
		db:          db,
		usrRepo:     sqlxrepos.NewUserRepository(db),
		enrollRepo:  sqlxrepos.NewEnrollmentRepository(db),
		lectureRepo: sqlxrepos.NewLectureRepository(db),
		audioDir:    t.TempDir(),
		transcriber: func(string) (string, error) { return "", nil },
		corrector:   func(string) ([]string, error) { return nil, nil },
	}

	// set up services
	audioStore, err := files.NewAudioStore(env.audioDir)
	require.NoError(t, err)
	env.usrSvc = user.NewService(env.usrRepo, emailsvc.NewConsoleServiceMock(conf), conf)
	enrollSvc := enrollment.NewService(env.enrollRepo, env.usrSvc)
	env.lectureSvc = lecture.NewService(lecture.ServiceDeps{
		DB:          db,
		Repo:        env.lectureRepo,
		Enrollments: enrollSvc,
		Corrector: correctorFunc(func(text string) ([]string, error) {
			env.mu.Lock()
			defer env.mu.Unlock()
			return env.corrector(text)
		}),
		Transcriber: transcriberFunc(func(audio string) (string, error) {
			env.mu.Lock()
			defer env.mu.Unlock()
			return env.transcriber(audio)
		}),
		AudioStore: audioStore,
		Logger:     logger,
		Timeout:    5 * time.Second,
	})

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	lecture.InitValidators(validate, translator)

	sessStore, err := echoapi.NewSessionStore(conf)
	require.NoError(t, err)

	// set up server
	env.app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		UserSvc:       env.usrSvc,
		EnrollmentSvc: enrollSvc,
		LectureSvc:    env.lectureSvc,
		Sessions:      sessStore,
		Validate:      validate,
		Translator:    translator,
	})
	return env
}

// client keeps the session cookie between requests, like a browser.
type client struct {
	t       *testing.T
	app     http.Handler
	cookies map[string]*http.Cookie
}

func (env *testEnv) newClient(t *testing.T) *client {
	return &client{t: t, app: env.app, cookies: make(map[string]*http.Cookie)}
}

// loggedInClient returns a client holding the session of the given user.
func (env *testEnv) loggedInClient(t *testing.T, uname, pwd string, role user.Role) *client {
	c := env.newClient(t)
	rec := c.postForm("/login", url.Values{"username": {uname}, "password": {pwd}, "role": {role.String()}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(t, role.Dashboard(), rec.Header().Get(echo.HeaderLocation))
	return c
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.app.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
		} else {
			c.cookies[ck.Name] = ck
		}
	}
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) send(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return c.do(req)
}

func (c *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return c.do(req)
}

// postFile sends a multipart request carrying one file part. A nil content sends no part at all.
func (c *client) postFile(path, field, filename string, content []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if content != nil {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(c.t, err)
		_, err = part.Write(content)
		require.NoError(c.t, err)
	} else {
		require.NoError(c.t, w.WriteField("title", "no audio here"))
	}
	require.NoError(c.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return c.do(req)
}

// messages drains the flash messages through the home page.
func (c *client) messages() []string {
	rec := c.get("/")
	require.Equal(c.t, http.StatusOK, rec.Code)
	var resp struct {
		Messages []string `json:"messages"`
	}
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Messages
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	client   *client
	wantCode int
	wantData []byte
	extra    interface{}
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func dirIsEmpty(t *testing.T, dir string) bool {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries) == 0
}
