package extractor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/miklbjorn/email-summerhouse/internal/domain"
	"github.com/miklbjorn/email-summerhouse/internal/extractor"
	"github.com/miklbjorn/email-summerhouse/mocks"
	"github.com/miklbjorn/email-summerhouse/internal/port"
)

func newEngine() (*extractor.Engine, *mocks.MockDocumentConverter, *mocks.MockCompleter) {
	converter := new(mocks.MockDocumentConverter)
	completer := new(mocks.MockCompleter)
	return extractor.NewEngine(converter, completer), converter, completer
}

// --- Normalize ---

func TestNormalize_HTMLBodyPreferred(t *testing.T) {
	engine, converter, _ := newEngine()

	converter.On("ConvertBatch", mock.Anything, mock.MatchedBy(func(docs []domain.Attachment) bool {
		return len(docs) == 1 &&
			docs[0].Filename == domain.EmailBodyFilename &&
			docs[0].ContentType == "text/html"
	})).Return([]port.ConvertResult{{Markdown: "# Body"}}, nil)

	docs := engine.Normalize(context.Background(), "plain text", "<p>html</p>", nil)

	assert.Len(t, docs, 1)
	assert.Equal(t, domain.EmailBodyFilename, docs[0].Filename)
	assert.Equal(t, "# Body", docs[0].Markdown)
	converter.AssertExpectations(t)
}

func TestNormalize_TextBodyFallback(t *testing.T) {
	engine, converter, _ := newEngine()

	converter.On("ConvertBatch", mock.Anything, mock.MatchedBy(func(docs []domain.Attachment) bool {
		return len(docs) == 1 && docs[0].ContentType == "text/plain"
	})).Return([]port.ConvertResult{{Markdown: "body"}}, nil)

	docs := engine.Normalize(context.Background(), "plain text", "", nil)

	assert.Len(t, docs, 1)
}

func TestNormalize_BodyFirstThenAttachments(t *testing.T) {
	engine, converter, _ := newEngine()

	converter.On("ConvertBatch", mock.Anything, mock.Anything).
		Return([]port.ConvertResult{{Markdown: "body"}, {Markdown: "invoice"}}, nil)

	docs := engine.Normalize(context.Background(), "", "<p>x</p>", []domain.Attachment{
		{Filename: "invoice.pdf", ContentType: "application/pdf", Data: []byte("pdf")},
	})

	assert.Len(t, docs, 2)
	assert.Equal(t, domain.EmailBodyFilename, docs[0].Filename)
	assert.Equal(t, "invoice.pdf", docs[1].Filename)
}

func TestNormalize_NoInputs(t *testing.T) {
	engine, converter, _ := newEngine()

	docs := engine.Normalize(context.Background(), "", "", nil)

	assert.Empty(t, docs)
	converter.AssertNotCalled(t, "ConvertBatch")
}

func TestNormalize_PerDocumentFailureBecomesStub(t *testing.T) {
	engine, converter, _ := newEngine()

	converter.On("ConvertBatch", mock.Anything, mock.Anything).
		Return([]port.ConvertResult{{Markdown: "body"}, {Err: "unsupported format"}}, nil)

	docs := engine.Normalize(context.Background(), "", "<p>x</p>", []domain.Attachment{
		{Filename: "weird.xyz", Data: []byte("???")},
	})

	assert.Len(t, docs, 2)
	assert.Equal(t, "weird.xyz", docs[1].Filename)
	assert.Contains(t, docs[1].Markdown, "weird.xyz")
	assert.Contains(t, docs[1].Markdown, "unsupported format")
}

func TestNormalize_BatchFailureStubsEverything(t *testing.T) {
	engine, converter, _ := newEngine()

	converter.On("ConvertBatch", mock.Anything, mock.Anything).
		Return(nil, errors.New("service down"))

	docs := engine.Normalize(context.Background(), "body text", "", []domain.Attachment{
		{Filename: "invoice.pdf", Data: []byte("pdf")},
	})

	assert.Len(t, docs, 2)
	for _, doc := range docs {
		assert.Contains(t, doc.Markdown, "service down")
	}
}

// --- Extract ---

func TestExtract_ProseWrappedResponse(t *testing.T) {
	engine, _, completer := newEngine()

	completer.On("Complete", mock.Anything, mock.Anything).Return(
		"Sure! Here is the result:\n"+
			`{"supplier": "Acme", "amount": 150.5, "currency": "DKK", "items": ["hosting"], "sourceFileReference": "invoice.pdf"}`+
			"\nHope that helps.", nil)

	ext := engine.Extract(context.Background(), []domain.NormalizedDocument{
		{Filename: "invoice.pdf", Markdown: "# Invoice"},
	})

	assert.NotNil(t, ext.Supplier)
	assert.Equal(t, "Acme", *ext.Supplier)
	assert.NotNil(t, ext.Amount)
	assert.Equal(t, 150.5, *ext.Amount)
	assert.NotNil(t, ext.Currency)
	assert.Equal(t, "DKK", *ext.Currency)
	assert.Equal(t, []string{"hosting"}, ext.Items)
	assert.Equal(t, "invoice.pdf", *ext.SourceFileReference)
}

func TestExtract_CompleterErrorFallsBackToNulls(t *testing.T) {
	engine, _, completer := newEngine()

	completer.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("rate limited"))

	ext := engine.Extract(context.Background(), []domain.NormalizedDocument{
		{Filename: "first.pdf", Markdown: "# A"},
		{Filename: "second.pdf", Markdown: "# B"},
	})

	assert.Nil(t, ext.Supplier)
	assert.Nil(t, ext.Amount)
	assert.Equal(t, []string{}, ext.Items)
	assert.NotNil(t, ext.SourceFileReference)
	assert.Equal(t, "first.pdf", *ext.SourceFileReference)
}

func TestExtract_NoJSONInResponseFallsBack(t *testing.T) {
	engine, _, completer := newEngine()

	completer.On("Complete", mock.Anything, mock.Anything).Return("I could not find an invoice.", nil)

	ext := engine.Extract(context.Background(), []domain.NormalizedDocument{
		{Filename: "email_body", Markdown: "hello"},
	})

	assert.Nil(t, ext.Supplier)
	assert.Equal(t, "email_body", *ext.SourceFileReference)
}

func TestExtract_MissingSourceReferenceDefaultsToFirstDoc(t *testing.T) {
	engine, _, completer := newEngine()

	completer.On("Complete", mock.Anything, mock.Anything).Return(`{"supplier": "Acme"}`, nil)

	ext := engine.Extract(context.Background(), []domain.NormalizedDocument{
		{Filename: "doc.pdf", Markdown: "# Doc"},
	})

	assert.Equal(t, "Acme", *ext.Supplier)
	assert.Equal(t, "doc.pdf", *ext.SourceFileReference)
}

func TestExtract_MalformedFieldNullsAlone(t *testing.T) {
	engine, _, completer := newEngine()

	completer.On("Complete", mock.Anything, mock.Anything).Return(
		`{"supplier": "Acme", "amount": "one hundred", "currency": "EUR"}`, nil)

	ext := engine.Extract(context.Background(), []domain.NormalizedDocument{
		{Filename: "doc.pdf", Markdown: "# Doc"},
	})

	assert.Equal(t, "Acme", *ext.Supplier)
	assert.Nil(t, ext.Amount)
	assert.Equal(t, "EUR", *ext.Currency)
}

func TestExtract_NoDocuments(t *testing.T) {
	engine, _, completer := newEngine()

	ext := engine.Extract(context.Background(), nil)

	assert.Nil(t, ext.SourceFileReference)
	assert.Equal(t, []string{}, ext.Items)
	completer.AssertNotCalled(t, "Complete")
}

func TestExtract_NullLiteralsDecodeToNil(t *testing.T) {
	engine, _, completer := newEngine()

	completer.On("Complete", mock.Anything, mock.Anything).Return(
		`{"supplier": null, "amount": null, "items": []}`, nil)

	ext := engine.Extract(context.Background(), []domain.NormalizedDocument{
		{Filename: "doc.pdf", Markdown: "# Doc"},
	})

	assert.Nil(t, ext.Supplier)
	assert.Nil(t, ext.Amount)
	assert.Equal(t, []string{}, ext.Items)
}

func TestBuildPrompt_ContainsDocuments(t *testing.T) {
	prompt := extractor.BuildPrompt([]domain.NormalizedDocument{
		{Filename: "email_body", Markdown: "please pay this"},
		{Filename: "invoice.pdf", Markdown: "# Total: 100 DKK"},
	})

	assert.Contains(t, prompt, "# email_body")
	assert.Contains(t, prompt, "# invoice.pdf")
	assert.Contains(t, prompt, "please pay this")
	assert.Contains(t, prompt, "Total: 100 DKK")
	assert.Contains(t, prompt, "sourceFileReference")
}
