package knowledge

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/lucaproject/luca-core/log"
)

// Loader ingests course practice pages (HTML) into a GraphWriter.
//
// Expected page shape:
//
//	<h1>Práctica 3: Álgebra Relacional</h1>
//	<p class="descripcion">...</p>
//	<section data-section="A">
//	  <article data-exercise="1">
//	    <div class="enunciado">...</div>
//	    <div class="solucion">...</div>
//	    <p class="tip">...</p>
//	  </article>
//	</section>
type Loader struct {
	writer GraphWriter
	policy *bluemonday.Policy
	logger log.Logger
}

// NewLoader creates a loader writing into writer.
func NewLoader(writer GraphWriter) *Loader {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("section", "article")
	policy.AllowAttrs("data-section", "data-exercise", "class").Globally()

	return &Loader{
		writer: writer,
		policy: policy,
		logger: log.GetDefaultLogger(),
	}
}

// SetLogger overrides the loader's logger.
func (l *Loader) SetLogger(logger log.Logger) {
	if logger != nil {
		l.logger = logger
	}
}

var practiceNumberRegex = regexp.MustCompile(`(?i)pr[áa]ctica\s+(\d+)`)

// LoadPractice parses one practice page and upserts the practice, its
// exercises and its tips. The raw HTML is sanitized before parsing.
func (l *Loader) LoadPractice(ctx context.Context, r io.Reader) (*PracticeRecord, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("knowledge: reading practice page: %w", err)
	}

	clean := l.policy.SanitizeBytes(raw)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(clean)))
	if err != nil {
		return nil, fmt.Errorf("knowledge: parsing practice page: %w", err)
	}

	title := collapseSpace(doc.Find("h1").First().Text())
	if title == "" {
		return nil, fmt.Errorf("knowledge: practice page has no title")
	}

	m := practiceNumberRegex.FindStringSubmatch(title)
	if m == nil {
		return nil, fmt.Errorf("knowledge: cannot determine practice number from title %q", title)
	}
	number, _ := strconv.Atoi(m[1])

	practice := PracticeRecord{
		Number:      number,
		Title:       title,
		Description: collapseSpace(doc.Find("p.descripcion").First().Text()),
	}
	if err := l.writer.UpsertPractice(ctx, practice); err != nil {
		return nil, fmt.Errorf("knowledge: upserting practice %d: %w", number, err)
	}

	var loadErr error
	doc.Find("section[data-section]").Each(func(_ int, sec *goquery.Selection) {
		section := sec.AttrOr("data-section", "")
		sec.Find("article[data-exercise]").Each(func(_ int, art *goquery.Selection) {
			exerciseID := art.AttrOr("data-exercise", "")
			rec := ExerciseRecord{
				PracticeNumber: number,
				Section:        section,
				ExerciseID:     exerciseID,
				Statement:      collapseSpace(art.Find(".enunciado").Text()),
				Solution:       collapseSpace(art.Find(".solucion").Text()),
			}
			if rec.Statement == "" {
				l.logger.Warn("knowledge: skipping exercise %s.%s of practice %d: empty statement",
					section, exerciseID, number)
				return
			}
			if err := l.writer.UpsertExercise(ctx, rec); err != nil && loadErr == nil {
				loadErr = fmt.Errorf("knowledge: upserting exercise %s.%s: %w", section, exerciseID, err)
			}

			art.Find(".tip").Each(func(_ int, tipSel *goquery.Selection) {
				text := collapseSpace(tipSel.Text())
				if text == "" {
					return
				}
				tip := Tip{PracticeNumber: number, Section: section, ExerciseID: exerciseID, Text: text}
				if err := l.writer.UpsertTip(ctx, tip); err != nil && loadErr == nil {
					loadErr = err
				}
			})
		})

		// Section-level tips apply to every exercise in the section.
		sec.ChildrenFiltered(".tip").Each(func(_ int, tipSel *goquery.Selection) {
			text := collapseSpace(tipSel.Text())
			if text == "" {
				return
			}
			tip := Tip{PracticeNumber: number, Section: section, Text: text}
			if err := l.writer.UpsertTip(ctx, tip); err != nil && loadErr == nil {
				loadErr = err
			}
		})
	})
	if loadErr != nil {
		return nil, loadErr
	}

	l.logger.Info("knowledge: loaded practice %d (%s)", number, title)
	return &practice, nil
}

var spaceRegex = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string {
	return strings.TrimSpace(spaceRegex.ReplaceAllString(s, " "))
}
