package echoapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lectern/core/lecture"
	"github.com/trezcool/lectern/core/user"
	transcribesvc "github.com/trezcool/lectern/services/transcribe"
	"github.com/trezcool/lectern/tests"
)

func Test_ingestApi_startRecording(t *testing.T) {
	env := setup(t)
	testutil.CreateUser(t, env.usrRepo, "bob", lecturerPwd, user.RoleLecturer, "CS101", "")
	testutil.CreateUser(t, env.usrRepo, "alice", studentPwd, user.RoleStudent, "CS101", "2")

	unauthorized := marchallObj(t, httpErr{Error: "Unauthorized"})
	tests := []httpTest{
		{name: "anonymous", client: env.newClient(t), wantCode: http.StatusUnauthorized, wantData: unauthorized},
		{name: "student", client: env.loggedInClient(t, "alice", studentPwd, user.RoleStudent), wantCode: http.StatusUnauthorized, wantData: unauthorized},
		{name: "lecturer", client: env.loggedInClient(t, "bob", lecturerPwd, user.RoleLecturer), wantCode: http.StatusOK, wantData: []byte(`{"status":"ready"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, tt.client.send(http.MethodPost, "/api/start_recording"))
		})
	}
}

func Test_ingestApi_transcribe(t *testing.T) {
	env := setup(t)
	testutil.CreateUser(t, env.usrRepo, "bob", lecturerPwd, user.RoleLecturer, "CS101", "")
	testutil.CreateUser(t, env.usrRepo, "alice", studentPwd, user.RoleStudent, "CS101", "2")

	lecturer := env.loggedInClient(t, "bob", lecturerPwd, user.RoleLecturer)
	student := env.loggedInClient(t, "alice", studentPwd, user.RoleStudent)

	type extra struct {
		filename    string
		content     []byte
		transcriber transcriberFunc
	}
	echoAudio := func(audio string) (string, error) { return "heard: " + audio, nil }

	tests := []httpTest{
		{
			name: "not a lecturer", client: student, wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "Unauthorized"}),
			extra:    extra{filename: "a.wav", content: []byte("RIFF"), transcriber: echoAudio},
		},
		{
			name: "no audio part", client: lecturer, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "No audio file provided"}),
			extra:    extra{transcriber: echoAudio},
		},
		{
			name: "empty filename", client: lecturer, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "No selected file"}),
			extra:    extra{filename: "", content: []byte("RIFF"), transcriber: echoAudio},
		},
		{
			name: "transcribed", client: lecturer, wantCode: http.StatusOK,
			wantData: []byte(`{"text":"heard: RIFF"}`),
			extra:    extra{filename: "lecture.wav", content: []byte("RIFF"), transcriber: echoAudio},
		},
		{
			name: "model failure", client: lecturer, wantCode: http.StatusBadGateway,
			wantData: []byte(`{"error":"Transcription failed","details":"{\"error\":\"Model is loading\"}"}`),
			extra: extra{filename: "lecture.wav", content: []byte("RIFF"), transcriber: func(string) (string, error) {
				return "", transcribesvc.StatusError{StatusCode: http.StatusServiceUnavailable, Body: `{"error":"Model is loading"}`}
			}},
		},
		{
			name: "model timeout", client: lecturer, wantCode: http.StatusBadGateway,
			extra: extra{filename: "lecture.wav", content: []byte("RIFF"), transcriber: func(string) (string, error) {
				return "", context.DeadlineExceeded
			}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := tt.extra.(extra)
			env.setTranscriber(ex.transcriber)

			rec := tt.client.postFile("/api/transcribe", "audio", ex.filename, ex.content)
			checkCodeAndData(t, tt, rec)
			assert.True(t, dirIsEmpty(t, env.audioDir), "staged audio left behind")
		})
	}
}

func Test_ingestApi_saveLecture(t *testing.T) {
	env := setup(t)
	testutil.CreateUser(t, env.usrRepo, "bob", lecturerPwd, user.RoleLecturer, "CS101", "")
	testutil.CreateUser(t, env.usrRepo, "alice", studentPwd, user.RoleStudent, "CS101", "2")

	lecturer := env.loggedInClient(t, "bob", lecturerPwd, user.RoleLecturer)
	student := env.loggedInClient(t, "alice", studentPwd, user.RoleStudent)

	fixGrammar := func(text string) ([]string, error) {
		return []string{strings.ReplaceAll(text, "teh", "the")}, nil
	}
	noCandidates := func(string) ([]string, error) { return nil, nil }

	valid := lecture.NewLecture{Title: "teh loops", Course: "CS101", Year: "2", Content: "teh for loop repeats"}

	t.Run("not a lecturer", func(t *testing.T) {
		rec := student.send(http.MethodPost, "/api/save_lecture", marchallObj(t, valid))
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "Unauthorized"})}, rec)
	})

	t.Run("missing fields", func(t *testing.T) {
		for _, body := range []string{
			`{"title":"t","course":"CS101","year":"2"}`,
			`{"title":"","course":"CS101","year":"2","content":"c"}`,
			`{}`,
			`not json`,
		} {
			rec := lecturer.send(http.MethodPost, "/api/save_lecture", []byte(body))
			assert.Equal(t, http.StatusBadRequest, rec.Code, body)
			var herr httpErr
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &herr))
			assert.Equal(t, "Missing required fields", herr.Error)
		}
	})

	t.Run("stores the corrected text", func(t *testing.T) {
		env.setCorrector(fixGrammar)
		rec := lecturer.send(http.MethodPost, "/api/save_lecture", marchallObj(t, valid))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Success   bool `json:"success"`
			LectureID int  `json:"lecture_id"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)

		l, err := env.lectureRepo.GetLecture(context.Background(), resp.LectureID)
		require.NoError(t, err)
		assert.Equal(t, "the loops", l.Title)
		assert.Equal(t, "the for loop repeats", l.Content)
		assert.Equal(t, "bob", l.Author)
	})

	t.Run("stores the original text without candidates", func(t *testing.T) {
		env.setCorrector(noCandidates)
		rec := lecturer.send(http.MethodPost, "/api/save_lecture", marchallObj(t, valid))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			LectureID int `json:"lecture_id"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		l, err := env.lectureRepo.GetLecture(context.Background(), resp.LectureID)
		require.NoError(t, err)
		assert.Equal(t, valid.Title, l.Title)
		assert.Equal(t, valid.Content, l.Content)
	})

	t.Run("numeric year", func(t *testing.T) {
		env.setCorrector(noCandidates)
		rec := lecturer.send(http.MethodPost, "/api/save_lecture", []byte(`{"title":"Loops","course":"CS101","year":2,"content":"for"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			LectureID int `json:"lecture_id"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		l, err := env.lectureRepo.GetLecture(context.Background(), resp.LectureID)
		require.NoError(t, err)
		assert.Equal(t, "2", l.Year)
	})

	t.Run("corrector failure stores nothing", func(t *testing.T) {
		before, err := env.lectureRepo.QueryLectures(context.Background(), lecture.QueryFilter{})
		require.NoError(t, err)

		env.setCorrector(func(string) ([]string, error) { return nil, errors.New("connection refused") })
		rec := lecturer.send(http.MethodPost, "/api/save_lecture", marchallObj(t, valid))
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadGateway,
			wantData: []byte(`{"error":"Grammar correction failed","details":"connection refused"}`),
		}, rec)

		after, err := env.lectureRepo.QueryLectures(context.Background(), lecture.QueryFilter{})
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})
}
