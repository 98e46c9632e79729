package student

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudent_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name           string
		data           string
		wantID         string
		wantGrade      string
		wantClassGroup string
		wantBirthDate  string
	}{
		{
			name:   "canonical",
			data:   `{"id": "s1", "name": "Alice", "grade": "1º Ano", "class_group": "A"}`,
			wantID: "s1", wantGrade: "1º Ano", wantClassGroup: "A",
		},
		{
			name:   "legacy keys",
			data:   `{"id": "s2", "name": "Bruno", "serie": "1ª Série", "turma": "a"}`,
			wantID: "s2", wantGrade: "1ª Série", wantClassGroup: "a",
		},
		{
			name:   "canonical keys win",
			data:   `{"id": "s3", "grade": "2º Ano", "serie": "1º Ano", "class_group": " ", "turma": "B"}`,
			wantID: "s3", wantGrade: "2º Ano", wantClassGroup: "B",
		},
		{
			name:   "numeric id",
			data:   `{"id": 42, "grade": "3º Ano"}`,
			wantID: "42", wantGrade: "3º Ano",
		},
		{
			name: "no id",
			data: `{"name": "Davi"}`,
		},
		{
			name:   "date only birth date",
			data:   `{"id": "s4", "grade": "4º Ano", "birth_date": "2012-03-01"}`,
			wantID: "s4", wantGrade: "4º Ano", wantBirthDate: "2012-03-01",
		},
		{
			name:   "legacy record with date only birth date",
			data:   `{"id": 7, "serie": "7º Ano", "birth_date": "2012-03-01"}`,
			wantID: "7", wantGrade: "7º Ano", wantBirthDate: "2012-03-01",
		},
		{
			name:   "timestamp birth date",
			data:   `{"id": "s5", "grade": "5º Ano", "birth_date": "2012-03-01T23:30:00-03:00"}`,
			wantID: "s5", wantGrade: "5º Ano", wantBirthDate: "2012-03-01",
		},
		{
			name:   "null birth date",
			data:   `{"id": "s6", "grade": "6º Ano", "birth_date": null}`,
			wantID: "s6", wantGrade: "6º Ano",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Student
			require.NoError(t, json.Unmarshal([]byte(tt.data), &s))
			assert.Equal(t, tt.wantID, s.ID)
			assert.Equal(t, tt.wantGrade, s.Grade)
			assert.Equal(t, tt.wantClassGroup, s.ClassGroup)
			if tt.wantBirthDate == "" {
				assert.Nil(t, s.BirthDate)
			} else if assert.NotNil(t, s.BirthDate) {
				assert.Equal(t, tt.wantBirthDate, s.BirthDate.String())
			}
		})
	}

	t.Run("invalid", func(t *testing.T) {
		var s Student
		assert.Error(t, json.Unmarshal([]byte(`[1, 2]`), &s))
		assert.Equal(t, ErrInvalidDate, json.Unmarshal([]byte(`{"birth_date": "01/03/2012"}`), &s))
		assert.Equal(t, ErrInvalidDate, json.Unmarshal([]byte(`{"birth_date": 20120301}`), &s))
	})
}

func TestStudent_MarshalJSON_canonical(t *testing.T) {
	birth := NewDate(time.Date(2012, time.March, 1, 15, 0, 0, 0, time.UTC))
	s := Student{ID: "s1", Name: "Alice", BirthDate: &birth, Grade: "1º Ano", ClassGroup: "A", Notes: json.RawMessage(`{}`)}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"grade":"1º Ano"`)
	assert.Contains(t, string(data), `"class_group":"A"`)
	assert.Contains(t, string(data), `"birth_date":"2012-03-01"`)
	assert.NotContains(t, string(data), "serie")
}

func TestDateFromTime(t *testing.T) {
	assert.Nil(t, DateFromTime(nil))
	var d *Date
	assert.Nil(t, d.TimePtr())

	ts := time.Date(2012, time.March, 1, 0, 0, 0, 0, time.UTC)
	d = DateFromTime(&ts)
	require.NotNil(t, d)
	assert.Equal(t, ts, *d.TimePtr())
}
