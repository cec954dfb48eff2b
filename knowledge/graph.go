package knowledge

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/lucaproject/luca-core/log"
)

// GraphProvider resolves course content from a FalkorDB knowledge
// graph over the RedisGraph wire protocol (GRAPH.QUERY via go-redis).
type GraphProvider struct {
	client    redis.UniversalClient
	graphName string
	logger    log.Logger
}

var _ Provider = (*GraphProvider)(nil)

// NewGraphProvider connects using a falkordb://host:port/graph_name
// connection string.
func NewGraphProvider(connectionString string) (*GraphProvider, error) {
	u, err := url.Parse(connectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}

	addr := u.Host
	if addr == "" {
		return nil, fmt.Errorf("invalid connection string: missing host")
	}
	graphName := strings.TrimPrefix(u.Path, "/")
	if graphName == "" {
		graphName = "course"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	return NewGraphProviderWithClient(client, graphName), nil
}

// NewGraphProviderWithClient wraps an existing redis client.
func NewGraphProviderWithClient(client redis.UniversalClient, graphName string) *GraphProvider {
	return &GraphProvider{
		client:    client,
		graphName: graphName,
		logger:    log.GetDefaultLogger(),
	}
}

// SetLogger overrides the provider's logger.
func (p *GraphProvider) SetLogger(logger log.Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// Close closes the underlying redis client.
func (p *GraphProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func (p *GraphProvider) PracticeDetails(ctx context.Context, practiceNumber int) (*PracticeRecord, error) {
	rows, err := p.query(ctx, practiceQuery(practiceNumber))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	if len(row) < 3 {
		return nil, fmt.Errorf("knowledge: malformed practice row")
	}
	return &PracticeRecord{
		Number:      asInt(row[0]),
		Title:       asString(row[1]),
		Description: asString(row[2]),
	}, nil
}

func (p *GraphProvider) ExerciseDetails(ctx context.Context, practiceNumber int, section, exerciseID string) (*ExerciseRecord, error) {
	rows, err := p.query(ctx, exerciseQuery(practiceNumber, section, exerciseID))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	if len(row) < 2 {
		return nil, fmt.Errorf("knowledge: malformed exercise row")
	}
	return &ExerciseRecord{
		PracticeNumber: practiceNumber,
		Section:        section,
		ExerciseID:     exerciseID,
		Statement:      asString(row[0]),
		Solution:       asString(row[1]),
	}, nil
}

func (p *GraphProvider) PracticeTips(ctx context.Context, practiceNumber int, section, exerciseID string) ([]Tip, error) {
	rows, err := p.query(ctx, tipsQuery(practiceNumber, section, exerciseID))
	if err != nil {
		return nil, err
	}

	tips := make([]Tip, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		tips = append(tips, Tip{
			PracticeNumber: practiceNumber,
			Section:        section,
			ExerciseID:     exerciseID,
			Text:           asString(row[0]),
		})
	}
	return tips, nil
}

func (p *GraphProvider) SubjectObjectives(ctx context.Context, subject string) ([]string, error) {
	rows, err := p.query(ctx, objectivesQuery(subject))
	if err != nil {
		return nil, err
	}

	objectives := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		objectives = append(objectives, asString(row[0]))
	}
	return objectives, nil
}

func (p *GraphProvider) TheoryContent(ctx context.Context, concept string) (string, error) {
	rows, err := p.query(ctx, theoryQuery(concept))
	if err != nil {
		return "", err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return "", nil
	}
	return asString(rows[0][0]), nil
}

func (p *GraphProvider) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	rows, err := p.query(ctx, searchQuery(query, limit))
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(rows))
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		hits = append(hits, SearchHit{
			Kind:    asString(row[0]),
			Title:   asString(row[1]),
			Snippet: asString(row[2]),
		})
	}
	return hits, nil
}

// GraphWriter is the write side of the knowledge graph, used by the
// content loader to upsert records.
type GraphWriter interface {
	UpsertPractice(ctx context.Context, rec PracticeRecord) error
	UpsertExercise(ctx context.Context, rec ExerciseRecord) error
	UpsertTip(ctx context.Context, tip Tip) error
	UpsertConcept(ctx context.Context, name, content string) error
	UpsertObjective(ctx context.Context, subject, objective string) error
}

var _ GraphWriter = (*GraphProvider)(nil)

func (p *GraphProvider) UpsertPractice(ctx context.Context, rec PracticeRecord) error {
	q := fmt.Sprintf("MERGE (p:Practice {number: %d}) SET p.title = %s, p.description = %s",
		rec.Number, cypherString(rec.Title), cypherString(rec.Description))
	_, err := p.query(ctx, q)
	return err
}

func (p *GraphProvider) UpsertExercise(ctx context.Context, rec ExerciseRecord) error {
	q := fmt.Sprintf("MERGE (e:Exercise {practice: %d, section: %s, id: %s}) SET e.statement = %s, e.solution = %s",
		rec.PracticeNumber, cypherString(rec.Section), cypherString(rec.ExerciseID),
		cypherString(rec.Statement), cypherString(rec.Solution))
	_, err := p.query(ctx, q)
	return err
}

func (p *GraphProvider) UpsertTip(ctx context.Context, tip Tip) error {
	q := fmt.Sprintf("MERGE (t:Tip {practice: %d, section: %s, exercise: %s, text: %s})",
		tip.PracticeNumber, cypherString(tip.Section), cypherString(tip.ExerciseID), cypherString(tip.Text))
	_, err := p.query(ctx, q)
	return err
}

func (p *GraphProvider) UpsertConcept(ctx context.Context, name, content string) error {
	q := fmt.Sprintf("MERGE (c:Concept {name: %s}) SET c.content = %s",
		cypherString(name), cypherString(content))
	_, err := p.query(ctx, q)
	return err
}

func (p *GraphProvider) UpsertObjective(ctx context.Context, subject, objective string) error {
	q := fmt.Sprintf("MERGE (o:Objective {subject: %s, text: %s})",
		cypherString(subject), cypherString(objective))
	_, err := p.query(ctx, q)
	return err
}

// query runs one GRAPH.QUERY and returns the result rows. The reply is
// [header, rows, stats] for read queries and [rows, stats] for some
// write shapes.
func (p *GraphProvider) query(ctx context.Context, cypher string) ([][]any, error) {
	res, err := p.client.Do(ctx, "GRAPH.QUERY", p.graphName, cypher).Result()
	if err != nil {
		return nil, err
	}

	reply, ok := res.([]any)
	if !ok {
		return nil, fmt.Errorf("knowledge: unexpected response type %T", res)
	}

	var rawRows any
	switch len(reply) {
	case 3:
		rawRows = reply[1]
	case 2:
		rawRows = reply[0]
	default:
		return nil, fmt.Errorf("knowledge: unexpected response length %d", len(reply))
	}

	rows, ok := rawRows.([]any)
	if !ok {
		return nil, nil
	}

	out := make([][]any, 0, len(rows))
	for _, row := range rows {
		if vals, ok := row.([]any); ok {
			out = append(out, vals)
		}
	}
	return out, nil
}

// Query builders. Kept as pure functions so the Cypher contract is
// testable without a running graph.

func practiceQuery(number int) string {
	return fmt.Sprintf("MATCH (p:Practice {number: %d}) RETURN p.number, p.title, p.description", number)
}

func exerciseQuery(number int, section, exerciseID string) string {
	return fmt.Sprintf("MATCH (e:Exercise {practice: %d, section: %s, id: %s}) RETURN e.statement, e.solution",
		number, cypherString(section), cypherString(exerciseID))
}

func tipsQuery(number int, section, exerciseID string) string {
	q := fmt.Sprintf("MATCH (t:Tip {practice: %d", number)
	if section != "" {
		q += fmt.Sprintf(", section: %s", cypherString(section))
	}
	if exerciseID != "" {
		q += fmt.Sprintf(", exercise: %s", cypherString(exerciseID))
	}
	return q + "}) RETURN t.text"
}

func objectivesQuery(subject string) string {
	return fmt.Sprintf("MATCH (o:Objective {subject: %s}) RETURN o.text", cypherString(subject))
}

func theoryQuery(concept string) string {
	return fmt.Sprintf("MATCH (c:Concept {name: %s}) RETURN c.content", cypherString(concept))
}

func searchQuery(query string, limit int) string {
	needle := cypherString(strings.ToLower(query))
	q := fmt.Sprintf(
		"MATCH (n) WHERE (n:Practice OR n:Exercise OR n:Concept) AND "+
			"(toLower(coalesce(n.title, '')) CONTAINS %s OR "+
			"toLower(coalesce(n.description, '')) CONTAINS %s OR "+
			"toLower(coalesce(n.statement, '')) CONTAINS %s OR "+
			"toLower(coalesce(n.name, '')) CONTAINS %s) "+
			"RETURN labels(n)[0], coalesce(n.title, n.name, ''), coalesce(n.description, n.statement, n.content, '')",
		needle, needle, needle, needle)
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	return q
}

var labelRegex = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// sanitizeLabel strips anything that is not a valid label character.
func sanitizeLabel(l string) string {
	clean := labelRegex.ReplaceAllString(l, "_")
	if clean == "" {
		return "Entity"
	}
	return clean
}

// cypherString quotes a string literal for inline Cypher, escaping
// backslashes and quotes so user text cannot break out of the literal.
func cypherString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func asInt(v any) int {
	switch x := v.(type) {
	case int64:
		return int(x)
	case int:
		return x
	case string:
		n, _ := strconv.Atoi(x)
		return n
	case []byte:
		n, _ := strconv.Atoi(string(x))
		return n
	default:
		return 0
	}
}
