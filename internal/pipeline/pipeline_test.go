package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pallet-tracker/constants"
	"github.com/joseph-ayodele/pallet-tracker/internal/common"
	"github.com/joseph-ayodele/pallet-tracker/internal/entity"
	"github.com/joseph-ayodele/pallet-tracker/internal/extract"
	"github.com/joseph-ayodele/pallet-tracker/internal/repository"
)

const (
	palletX = "123456789012345678"
	palletY = "876543210987654321"
)

// testRenderer records rendered pages and fails for pages in failOn.
type testRenderer struct {
	failOn   map[int]bool
	rendered []int
	scales   []float64
	released int
	onRender func(page int)
}

func (r *testRenderer) RenderPage(_ context.Context, _ extract.Document, page int, scale float64) (extract.PageImage, error) {
	r.rendered = append(r.rendered, page)
	r.scales = append(r.scales, scale)
	if r.onRender != nil {
		r.onRender(page)
	}
	if r.failOn[page] {
		return extract.PageImage{}, errors.New("corrupt page stream")
	}
	return extract.PageImage{Page: page, Release: func() { r.released++ }}, nil
}

// testRecognizer returns canned text per page and fails for pages in failOn.
type testRecognizer struct {
	text       map[int]string
	failOn     map[int]bool
	recognized []int
	langs      []string
}

func (r *testRecognizer) Recognize(_ context.Context, img extract.PageImage, lang string) (string, error) {
	r.recognized = append(r.recognized, img.Page)
	r.langs = append(r.langs, lang)
	if r.failOn[img.Page] {
		return "", errors.New("tesseract crashed")
	}
	return r.text[img.Page], nil
}

// memoryRepo is an append-only store that can be told to reject identifiers.
type memoryRepo struct {
	rows   []entity.Association
	failOn map[string]bool
	calls  []entity.Association
}

func (m *memoryRepo) ListByIdentifier(_ context.Context, id string) ([]entity.Association, error) {
	out := make([]entity.Association, 0)
	for _, a := range m.rows {
		if a.Identifier == id {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryRepo) Create(_ context.Context, a entity.Association) error {
	m.calls = append(m.calls, a)
	if m.failOn[a.Identifier] {
		return errors.New("insert rejected")
	}
	m.rows = append(m.rows, a)
	return nil
}

func newTestPipeline(t *testing.T, rnd *testRenderer, rec *testRecognizer, repo repository.AssociationRepository, opts ...Option) *Pipeline {
	t.Helper()
	p, err := NewPipeline(rnd, rec, repo, append([]Option{WithLogger(slog.Default())}, opts...)...)
	require.NoError(t, err)
	return p
}

var doc = extract.Document{Name: "nda-2024-03.pdf", Path: "/scans/nda-2024-03.pdf"}

func TestIngestTwoPagesOneIdentifier(t *testing.T) {
	rnd := &testRenderer{}
	rec := &testRecognizer{text: map[int]string{1: "Pallet " + palletX + " received", 2: "signature page"}}
	repo := &memoryRepo{}

	run, err := newTestPipeline(t, rnd, rec, repo).Ingest(context.Background(), doc, 2)
	require.NoError(t, err)

	assert.Equal(t, []entity.LedgerEntry{{Identifier: palletX, PageNumber: 1}}, run.Ledger)
	assert.Equal(t, []entity.Association{{Identifier: palletX, DocumentName: doc.Name, PageNumber: 1}}, repo.rows)
	assert.Equal(t, constants.RunStatusCompleted, run.Status)
	require.Len(t, run.Pages, 2)
	assert.Equal(t, constants.PageStatusOK, run.Pages[0].Status)
	assert.Equal(t, constants.PageStatusNoIdentifiers, run.Pages[1].Status)
	assert.Equal(t, []int{1, 2}, rnd.rendered)
	assert.Equal(t, []float64{RenderScale, RenderScale}, rnd.scales)
	assert.Equal(t, 2, rnd.released, "each rendered image is released")
	assert.Equal(t, []string{"eng", "eng"}, rec.langs)
}

func TestIngestInsertFailureContinues(t *testing.T) {
	rnd := &testRenderer{}
	rec := &testRecognizer{text: map[int]string{
		1: palletX + " " + palletY,
		2: "second " + palletY,
	}}
	repo := &memoryRepo{failOn: map[string]bool{palletX: true}}

	run, err := newTestPipeline(t, rnd, rec, repo).Ingest(context.Background(), doc, 2)
	require.NoError(t, err)

	assert.Equal(t, []entity.LedgerEntry{
		{Identifier: palletY, PageNumber: 1},
		{Identifier: palletY, PageNumber: 2},
	}, run.Ledger)
	assert.Len(t, repo.calls, 3, "insert attempted for every identifier in extraction order")
	assert.Equal(t, palletX, repo.calls[0].Identifier)

	failures := run.FailuresOf(common.StoreInsertFailure)
	require.Len(t, failures, 1)
	assert.Equal(t, 1, failures[0].Page)
	assert.Equal(t, palletX, failures[0].Identifier)
	assert.Equal(t, 1, run.Pages[0].Inserted)
	assert.Len(t, run.Pages[0].Errors, 1)
}

func TestIngestSingleFailedInsertLeavesPageEmptyButContinues(t *testing.T) {
	rnd := &testRenderer{}
	rec := &testRecognizer{text: map[int]string{1: palletX}}
	repo := &memoryRepo{failOn: map[string]bool{palletX: true}}

	run, err := newTestPipeline(t, rnd, rec, repo).Ingest(context.Background(), doc, 2)
	require.NoError(t, err)

	assert.Empty(t, run.Ledger)
	assert.Equal(t, []int{1, 2}, rnd.rendered, "page 2 still processed")
	assert.Equal(t, []int{1, 2}, rec.recognized)
}

func TestIngestRenderFailureIsolatedToPage(t *testing.T) {
	rnd := &testRenderer{failOn: map[int]bool{1: true}}
	rec := &testRecognizer{text: map[int]string{1: palletY, 2: "ref " + palletX}}
	repo := &memoryRepo{}

	run, err := newTestPipeline(t, rnd, rec, repo).Ingest(context.Background(), doc, 2)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, rnd.rendered)
	assert.Equal(t, []int{2}, rec.recognized, "page 1 never reaches recognition")
	assert.Equal(t, []entity.LedgerEntry{{Identifier: palletX, PageNumber: 2}}, run.Ledger)
	assert.Equal(t, constants.PageStatusRenderFailed, run.Pages[0].Status)

	kind, ok := common.FailureKindOf(run.Failures[0])
	require.True(t, ok)
	assert.Equal(t, common.RenderFailure, kind)
	assert.Equal(t, 1, run.Failures[0].Page)
}

func TestIngestRecognitionFailureIsolatedToPage(t *testing.T) {
	rnd := &testRenderer{}
	rec := &testRecognizer{
		text:   map[int]string{1: palletX, 2: palletY},
		failOn: map[int]bool{1: true},
	}
	repo := &memoryRepo{}

	run, err := newTestPipeline(t, rnd, rec, repo).Ingest(context.Background(), doc, 2)
	require.NoError(t, err)

	assert.Equal(t, []entity.LedgerEntry{{Identifier: palletY, PageNumber: 2}}, run.Ledger)
	assert.Equal(t, constants.PageStatusRecognitionFailed, run.Pages[0].Status)
	assert.Len(t, run.FailuresOf(common.RecognitionFailure), 1)
	assert.Equal(t, 2, rnd.released, "image released even when recognition fails")
}

func TestIngestSameIdentifierOnSeveralPages(t *testing.T) {
	rnd := &testRenderer{}
	rec := &testRecognizer{text: map[int]string{
		1: palletX + " and again " + palletX,
		2: palletX,
	}}
	repo := &memoryRepo{}

	run, err := newTestPipeline(t, rnd, rec, repo).Ingest(context.Background(), doc, 2)
	require.NoError(t, err)

	assert.Equal(t, []entity.LedgerEntry{
		{Identifier: palletX, PageNumber: 1},
		{Identifier: palletX, PageNumber: 2},
	}, run.Ledger, "deduplicated within a page, not across pages")
}

func TestIngestPreconditions(t *testing.T) {
	rnd := &testRenderer{}
	p := newTestPipeline(t, rnd, &testRecognizer{}, &memoryRepo{})

	_, err := p.Ingest(context.Background(), doc, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoPages)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = p.Ingest(context.Background(), extract.Document{Name: "  "}, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = p.Ingest(context.Background(), extract.Document{Name: strings.Repeat("n", MaxDocumentNameLength+1)}, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Contains(t, err.Error(), "document_name")

	assert.Empty(t, rnd.rendered, "no work before preconditions pass")
}

func TestIngestCancellationSkipsRemainingPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rnd := &testRenderer{onRender: func(page int) {
		if page == 2 {
			cancel()
		}
	}}
	rec := &testRecognizer{text: map[int]string{1: palletX, 2: palletY, 3: "333333333333333333"}}
	repo := &memoryRepo{}

	var progress []Progress
	p := newTestPipeline(t, rnd, rec, repo, WithProgress(func(pr Progress) { progress = append(progress, pr) }))

	run, err := p.Ingest(ctx, doc, 4)
	require.NoError(t, err)

	assert.Equal(t, constants.RunStatusAborted, run.Status)
	assert.Equal(t, []int{1, 2}, rnd.rendered, "no render after abort")
	assert.Equal(t, []entity.LedgerEntry{
		{Identifier: palletX, PageNumber: 1},
		{Identifier: palletY, PageNumber: 2},
	}, run.Ledger, "in-flight page completes")

	require.Len(t, run.Pages, 4)
	assert.Equal(t, constants.PageStatusSkipped, run.Pages[2].Status)
	assert.Equal(t, constants.PageStatusSkipped, run.Pages[3].Status)

	require.Len(t, progress, 4)
	assert.Equal(t, 4, progress[3].Page)
	assert.Equal(t, constants.PageStatusSkipped, progress[3].Status)
	assert.Equal(t, run.ID, progress[0].RunID)
}

func TestIngestOptions(t *testing.T) {
	rnd := &testRenderer{}
	rec := &testRecognizer{}
	p := newTestPipeline(t, rnd, rec, &memoryRepo{}, WithScale(3), WithLanguage("deu"))

	_, err := p.Ingest(context.Background(), doc, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, rnd.scales)
	assert.Equal(t, []string{"deu"}, rec.langs)

	_, err = NewPipeline(rnd, rec, &memoryRepo{}, WithScale(0))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestNewPipelineRequiresCapabilities(t *testing.T) {
	_, err := NewPipeline(nil, &testRecognizer{}, &memoryRepo{})
	assert.ErrorIs(t, err, ErrRendererRequired)
	_, err = NewPipeline(&testRenderer{}, nil, &memoryRepo{})
	assert.ErrorIs(t, err, ErrRecognizerRequired)
	_, err = NewPipeline(&testRenderer{}, &testRecognizer{}, nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)
}

// Re-ingesting a document appends the same associations a second time. The
// store has no uniqueness constraint and the pipeline does not check for
// existing rows.
func TestReingestDuplicatesAssociations(t *testing.T) {
	ctx := context.Background()
	store, err := repository.OpenStore(ctx, common.DatabaseConfig{
		Driver: constants.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "pallets.db"),
	}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate(ctx))

	rec := &testRecognizer{text: map[int]string{1: palletX, 2: "nothing"}}
	p := newTestPipeline(t, &testRenderer{}, rec, store.Associations)

	first, err := p.Ingest(ctx, doc, 2)
	require.NoError(t, err)
	second, err := p.Ingest(ctx, doc, 2)
	require.NoError(t, err)

	assert.Equal(t, first.Ledger, second.Ledger)
	assert.NotEqual(t, first.ID, second.ID)

	rows, err := store.Associations.ListByIdentifier(ctx, palletX)
	require.NoError(t, err)
	assert.Equal(t, []entity.Association{
		{Identifier: palletX, DocumentName: doc.Name, PageNumber: 1},
		{Identifier: palletX, DocumentName: doc.Name, PageNumber: 1},
	}, rows)
}
