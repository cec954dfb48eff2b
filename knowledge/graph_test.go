package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewGraphProviderInvalidURL(t *testing.T) {
	t.Parallel()

	p, err := NewGraphProvider("://bad")
	assert.Error(t, err)
	assert.Nil(t, p)

	p, err = NewGraphProvider("falkordb://")
	assert.Error(t, err)
	assert.Nil(t, p)
}

func TestCypherString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "'joins'", cypherString("joins"))
	assert.Equal(t, `'it\'s'`, cypherString("it's"))
	assert.Equal(t, `'a\\b'`, cypherString(`a\b`))
	assert.Equal(t, "''", cypherString(""))
}

func TestSanitizeLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Practice", sanitizeLabel("Practice"))
	assert.Equal(t, "Tip_Section", sanitizeLabel("Tip Section"))
	assert.Equal(t, "Entity", sanitizeLabel(""))
}

func TestQueryBuilders(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"MATCH (p:Practice {number: 3}) RETURN p.number, p.title, p.description",
		practiceQuery(3))

	assert.Equal(t,
		"MATCH (e:Exercise {practice: 3, section: 'A', id: '2'}) RETURN e.statement, e.solution",
		exerciseQuery(3, "A", "2"))

	assert.Equal(t,
		"MATCH (t:Tip {practice: 3}) RETURN t.text",
		tipsQuery(3, "", ""))
	assert.Equal(t,
		"MATCH (t:Tip {practice: 3, section: 'A', exercise: '2'}) RETURN t.text",
		tipsQuery(3, "A", "2"))

	assert.Equal(t,
		"MATCH (o:Objective {subject: 'Bases de Datos'}) RETURN o.text",
		objectivesQuery("Bases de Datos"))

	assert.Equal(t,
		"MATCH (c:Concept {name: 'normalización'}) RETURN c.content",
		theoryQuery("normalización"))

	q := searchQuery("JOIN", 5)
	assert.Contains(t, q, "CONTAINS 'join'")
	assert.Contains(t, q, "LIMIT 5")

	// Injection attempts stay inside the literal.
	q = exerciseQuery(1, "A' }) DETACH DELETE e //", "1")
	assert.Contains(t, q, `section: 'A\' }) DETACH DELETE e //'`)
}

func TestRowValueHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hola", asString("hola"))
	assert.Equal(t, "hola", asString([]byte("hola")))
	assert.Equal(t, "", asString(nil))
	assert.Equal(t, "7", asString(int64(7)))

	assert.Equal(t, 3, asInt(int64(3)))
	assert.Equal(t, 3, asInt(3))
	assert.Equal(t, 3, asInt("3"))
	assert.Equal(t, 3, asInt([]byte("3")))
	assert.Equal(t, 0, asInt("x"))
	assert.Equal(t, 0, asInt(nil))
}
