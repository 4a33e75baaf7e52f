// Package language wraps the Google Cloud Natural Language API into plain
// value objects: send a document, get back an Annotation holding sentences,
// tokens, entities and sentiment. The wire protocol and transport belong to
// the generated client underneath.
package language

import (
	"context"
	"fmt"

	api "cloud.google.com/go/language/apiv1"
	"cloud.google.com/go/language/apiv1/languagepb"
	kitlog "github.com/go-kit/log"
	"google.golang.org/api/option"

	gcloud "github.com/calavera/gcloud-go"
)

// Feature selects which analyses Annotate runs.
type Feature int

const (
	// FeatureSentiment requests document and sentence sentiment.
	FeatureSentiment Feature = iota
	// FeatureEntities requests named entity extraction.
	FeatureEntities
	// FeatureSyntax requests sentence splitting and token analysis.
	FeatureSyntax
)

// Document is the text handed to the service: inline content or a Google
// Cloud Storage URL, as plain text or HTML.
type Document struct {
	// Content is the inline document text. Mutually exclusive with GCSURL.
	Content string
	// GCSURL points at a document in Cloud Storage, gs://bucket/object.
	GCSURL string
	// HTML marks the document as HTML rather than plain text.
	HTML bool
	// Language is an optional ISO/BCP-47 language hint. When empty the
	// service detects the language.
	Language string
}

func (d Document) proto() *languagepb.Document {
	doc := &languagepb.Document{
		Type:     languagepb.Document_PLAIN_TEXT,
		Language: d.Language,
	}
	if d.HTML {
		doc.Type = languagepb.Document_HTML
	}
	if d.GCSURL != "" {
		doc.Source = &languagepb.Document_GcsContentUri{GcsContentUri: d.GCSURL}
	} else {
		doc.Source = &languagepb.Document_Content{Content: d.Content}
	}
	return doc
}

// Client calls the Natural Language service.
type Client struct {
	c      *api.Client
	logger kitlog.Logger
}

// NewClient creates a Natural Language client. Credentials come from the
// environment (gcloud.Credentials) unless overridden through opts.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	c, err := api.NewClient(ctx, gcloud.Options("", opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Natural Language client: %w", err)
	}
	return &Client{c: c, logger: kitlog.NewNopLogger()}, nil
}

// SetLogger routes the client's debug logging to l. The default discards
// everything.
func (c *Client) SetLogger(l kitlog.Logger) {
	if l == nil {
		l = kitlog.NewNopLogger()
	}
	c.logger = l
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.c.Close()
}

// Annotate runs the named analyses over doc in a single request and returns
// the combined Annotation. With no features named it runs all of them.
func (c *Client) Annotate(ctx context.Context, doc Document, features ...Feature) (*Annotation, error) {
	req := &languagepb.AnnotateTextRequest{
		Document:     doc.proto(),
		Features:     featuresProto(features),
		EncodingType: languagepb.EncodingType_UTF8,
	}
	resp, err := c.c.AnnotateText(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("AnnotateText error: %w", err)
	}
	c.logger.Log("msg", "annotated document", "sentences", len(resp.Sentences), "entities", len(resp.Entities))
	return annotationFromProto(resp), nil
}

// AnalyzeSentiment returns the document-level sentiment of doc.
func (c *Client) AnalyzeSentiment(ctx context.Context, doc Document) (*Sentiment, error) {
	req := &languagepb.AnalyzeSentimentRequest{
		Document:     doc.proto(),
		EncodingType: languagepb.EncodingType_UTF8,
	}
	resp, err := c.c.AnalyzeSentiment(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("AnalyzeSentiment error: %w", err)
	}
	return sentimentFromProto(resp.DocumentSentiment), nil
}

// AnalyzeEntities extracts the named entities mentioned in doc.
func (c *Client) AnalyzeEntities(ctx context.Context, doc Document) (Entities, error) {
	req := &languagepb.AnalyzeEntitiesRequest{
		Document:     doc.proto(),
		EncodingType: languagepb.EncodingType_UTF8,
	}
	resp, err := c.c.AnalyzeEntities(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("AnalyzeEntities error: %w", err)
	}
	return entitiesFromProto(resp.Entities), nil
}

// AnalyzeSyntax splits doc into sentences and tokens.
func (c *Client) AnalyzeSyntax(ctx context.Context, doc Document) (*Annotation, error) {
	req := &languagepb.AnalyzeSyntaxRequest{
		Document:     doc.proto(),
		EncodingType: languagepb.EncodingType_UTF8,
	}
	resp, err := c.c.AnalyzeSyntax(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("AnalyzeSyntax error: %w", err)
	}
	a := &Annotation{Language: resp.Language}
	for _, s := range resp.Sentences {
		a.Sentences = append(a.Sentences, sentenceFromProto(s))
	}
	for _, t := range resp.Tokens {
		a.Tokens = append(a.Tokens, tokenFromProto(t))
	}
	return a, nil
}

func featuresProto(features []Feature) *languagepb.AnnotateTextRequest_Features {
	f := &languagepb.AnnotateTextRequest_Features{}
	if len(features) == 0 {
		f.ExtractSyntax = true
		f.ExtractEntities = true
		f.ExtractDocumentSentiment = true
		return f
	}
	for _, feat := range features {
		switch feat {
		case FeatureSentiment:
			f.ExtractDocumentSentiment = true
		case FeatureEntities:
			f.ExtractEntities = true
		case FeatureSyntax:
			f.ExtractSyntax = true
		}
	}
	return f
}
