package lecture_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lectern/core/lecture"
)

func TestNewLecture_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    lecture.NewLecture
		wantErr bool
	}{
		{
			name: "string year",
			data: `{"title":"Loops","course":"CS101","year":"2","content":"for"}`,
			want: lecture.NewLecture{Title: "Loops", Course: "CS101", Year: "2", Content: "for"},
		},
		{
			name: "numeric year",
			data: `{"title":"Loops","course":"CS101","year":2,"content":"for"}`,
			want: lecture.NewLecture{Title: "Loops", Course: "CS101", Year: "2", Content: "for"},
		},
		{
			name: "missing year",
			data: `{"title":"Loops","course":"CS101","content":"for"}`,
			want: lecture.NewLecture{Title: "Loops", Course: "CS101", Content: "for"},
		},
		{name: "null year", data: `{"title":"Loops","year":null}`, want: lecture.NewLecture{Title: "Loops"}},
		{name: "boolean year", data: `{"title":"Loops","year":true}`, wantErr: true},
		{name: "not json", data: `not json`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got lecture.NewLecture
			err := json.Unmarshal([]byte(tt.data), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
