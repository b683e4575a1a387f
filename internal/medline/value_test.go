package medline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueMarshalJSON(t *testing.T) {
	cases := []struct {
		name  string
		value Value
		want  string
	}{
		{"scalar", Scalar("eng"), `"eng"`},
		{"date", Date{Year: 2001, Month: time.November, Day: 8}, `"2001-11-08"`},
		{"identifier", Identifier{Value: "11700088", Version: 2}, `["11700088",2]`},
		{"typed id", TypedID{Type: "Print", Value: "0027-8874"}, `["Print","0027-8874"]`},
		{
			"mesh term",
			MeshTerm{Major: true, Descriptor: "Humans", Qualifiers: map[string]bool{"genetics": false}},
			`[true,"Humans",{"genetics":false}]`,
		},
		{"mesh term with nil qualifiers", MeshTerm{Descriptor: "Humans"}, `[false,"Humans",{}]`},
		{"list", List{Scalar("a"), Scalar("b")}, `["a","b"]`},
		{"mapping", Mapping{"Year": Scalar("2001")}, `{"Year":"2001"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := json.Marshal(tc.value)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(raw))
		})
	}
}

func TestValueKind(t *testing.T) {
	assert.Equal(t, KindScalar, Scalar("").Kind())
	assert.Equal(t, KindDate, Date{}.Kind())
	assert.Equal(t, KindIdentifier, Identifier{}.Kind())
	assert.Equal(t, KindTypedID, TypedID{}.Kind())
	assert.Equal(t, KindMeshTerm, MeshTerm{}.Kind())
	assert.Equal(t, KindList, List{}.Kind())
	assert.Equal(t, KindMapping, Mapping{}.Kind())

	assert.Equal(t, "scalar", KindScalar.String())
	assert.Equal(t, "mapping", KindMapping.String())
}

func TestDateTime(t *testing.T) {
	d := Date{Year: 2001, Month: time.November, Day: 8}
	assert.Equal(t, time.Date(2001, time.November, 8, 0, 0, 0, 0, time.UTC), d.Time())
}

func TestMappingAccessors(t *testing.T) {
	m := Mapping{
		"Status":  Scalar("MEDLINE"),
		"Article": Mapping{"ArticleTitle": Scalar("A title.")},
		"PMID":    Identifier{Value: "11700088", Version: 1},
	}

	status, ok := m.Scalar("Status")
	assert.True(t, ok)
	assert.Equal(t, "MEDLINE", status)

	_, ok = m.Scalar("PMID")
	assert.False(t, ok)

	article, ok := m.Mapping("Article")
	assert.True(t, ok)
	assert.Equal(t, Mapping{"ArticleTitle": Scalar("A title.")}, article)

	_, ok = m.Mapping("Missing")
	assert.False(t, ok)
}
