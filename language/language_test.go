package language_test

import (
	"context"
	"net"
	"testing"

	"cloud.google.com/go/language/apiv1/languagepb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/calavera/gcloud-go/language"
)

// fakeServer serves canned Natural Language responses and records the last
// request of each kind.
type fakeServer struct {
	languagepb.UnimplementedLanguageServiceServer

	annotateReq  *languagepb.AnnotateTextRequest
	annotateResp *languagepb.AnnotateTextResponse

	sentimentResp *languagepb.AnalyzeSentimentResponse
	entitiesResp  *languagepb.AnalyzeEntitiesResponse
	syntaxResp    *languagepb.AnalyzeSyntaxResponse
}

func (f *fakeServer) AnnotateText(ctx context.Context, req *languagepb.AnnotateTextRequest) (*languagepb.AnnotateTextResponse, error) {
	f.annotateReq = req
	return f.annotateResp, nil
}

func (f *fakeServer) AnalyzeSentiment(ctx context.Context, req *languagepb.AnalyzeSentimentRequest) (*languagepb.AnalyzeSentimentResponse, error) {
	return f.sentimentResp, nil
}

func (f *fakeServer) AnalyzeEntities(ctx context.Context, req *languagepb.AnalyzeEntitiesRequest) (*languagepb.AnalyzeEntitiesResponse, error) {
	return f.entitiesResp, nil
}

func (f *fakeServer) AnalyzeSyntax(ctx context.Context, req *languagepb.AnalyzeSyntaxRequest) (*languagepb.AnalyzeSyntaxResponse, error) {
	return f.syntaxResp, nil
}

func newTestClient(t *testing.T, fake *fakeServer) *language.Client {
	t.Helper()
	lis, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	languagepb.RegisterLanguageServiceServer(srv, fake)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	client, err := language.NewClient(context.Background(),
		option.WithEndpoint(lis.Addr().String()),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func span(content string, offset int32) *languagepb.TextSpan {
	return &languagepb.TextSpan{Content: content, BeginOffset: offset}
}

func TestAnnotate(t *testing.T) {
	fake := &fakeServer{
		annotateResp: &languagepb.AnnotateTextResponse{
			Language: "en",
			DocumentSentiment: &languagepb.Sentiment{
				Score:     0.4,
				Magnitude: 1.6,
			},
			Sentences: []*languagepb.Sentence{
				{
					Text:      span("Chris met Mary in the park.", 0),
					Sentiment: &languagepb.Sentiment{Score: 0.3, Magnitude: 0.3},
				},
			},
			Tokens: []*languagepb.Token{
				{
					Text:         span("Chris", 0),
					Lemma:        "Chris",
					PartOfSpeech: &languagepb.PartOfSpeech{Tag: languagepb.PartOfSpeech_NOUN},
					DependencyEdge: &languagepb.DependencyEdge{
						HeadTokenIndex: 1,
						Label:          languagepb.DependencyEdge_NSUBJ,
					},
				},
			},
			Entities: []*languagepb.Entity{
				{
					Name:     "Chris",
					Type:     languagepb.Entity_PERSON,
					Salience: 0.82,
					Mentions: []*languagepb.EntityMention{
						{Text: span("Chris", 0), Type: languagepb.EntityMention_PROPER},
					},
				},
				{
					Name:     "park",
					Type:     languagepb.Entity_LOCATION,
					Salience: 0.18,
					Metadata: map[string]string{"wikipedia_url": "https://en.wikipedia.org/wiki/Park"},
				},
			},
		},
	}
	client := newTestClient(t, fake)

	annotation, err := client.Annotate(context.Background(), language.Document{Content: "Chris met Mary in the park."})
	require.NoError(t, err)

	// Document sentiment maps straight off the fixture.
	require.NotNil(t, annotation.Sentiment)
	assert.InDelta(t, 0.4, annotation.Sentiment.Score, 1e-6)
	assert.InDelta(t, 1.6, annotation.Sentiment.Magnitude, 1e-6)
	assert.Equal(t, "en", annotation.Language)

	require.Len(t, annotation.Sentences, 1)
	assert.Equal(t, "Chris met Mary in the park.", annotation.Sentences[0].Text.Content)
	require.NotNil(t, annotation.Sentences[0].Sentiment)
	assert.InDelta(t, 0.3, annotation.Sentences[0].Sentiment.Score, 1e-6)

	require.Len(t, annotation.Tokens, 1)
	assert.Equal(t, "NOUN", annotation.Tokens[0].PartOfSpeech)
	assert.Equal(t, "NSUBJ", annotation.Tokens[0].Label)
	assert.Equal(t, int32(1), annotation.Tokens[0].HeadTokenIndex)
	assert.Equal(t, "Chris", annotation.Tokens[0].Lemma)

	require.Len(t, annotation.Entities, 2)
	assert.Equal(t, "Chris", annotation.Entities[0].Name)
	assert.Equal(t, language.EntityPerson, annotation.Entities[0].Type)
	assert.InDelta(t, 0.82, annotation.Entities[0].Salience, 1e-6)
	require.Len(t, annotation.Entities[0].Mentions, 1)
	assert.Equal(t, "PROPER", annotation.Entities[0].Mentions[0].Type)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Park", annotation.Entities[1].WikipediaURL())

	// With no features named, all of them are requested.
	require.NotNil(t, fake.annotateReq)
	assert.True(t, fake.annotateReq.Features.ExtractSyntax)
	assert.True(t, fake.annotateReq.Features.ExtractEntities)
	assert.True(t, fake.annotateReq.Features.ExtractDocumentSentiment)
}

func TestAnnotateFeatureSelection(t *testing.T) {
	fake := &fakeServer{annotateResp: &languagepb.AnnotateTextResponse{Language: "en"}}
	client := newTestClient(t, fake)

	_, err := client.Annotate(context.Background(), language.Document{Content: "hi"}, language.FeatureSentiment)
	require.NoError(t, err)
	assert.True(t, fake.annotateReq.Features.ExtractDocumentSentiment)
	assert.False(t, fake.annotateReq.Features.ExtractSyntax)
	assert.False(t, fake.annotateReq.Features.ExtractEntities)
}

func TestDocumentForms(t *testing.T) {
	fake := &fakeServer{annotateResp: &languagepb.AnnotateTextResponse{}}
	client := newTestClient(t, fake)

	_, err := client.Annotate(context.Background(), language.Document{
		GCSURL:   "gs://bucket/doc.html",
		HTML:     true,
		Language: "en",
	})
	require.NoError(t, err)

	doc := fake.annotateReq.Document
	assert.Equal(t, languagepb.Document_HTML, doc.Type)
	assert.Equal(t, "en", doc.Language)
	assert.Equal(t, "gs://bucket/doc.html", doc.GetGcsContentUri())
}

func TestAnalyzeSentiment(t *testing.T) {
	fake := &fakeServer{
		sentimentResp: &languagepb.AnalyzeSentimentResponse{
			DocumentSentiment: &languagepb.Sentiment{Score: -0.7, Magnitude: 2.1},
		},
	}
	client := newTestClient(t, fake)

	sentiment, err := client.AnalyzeSentiment(context.Background(), language.Document{Content: "this is terrible"})
	require.NoError(t, err)
	assert.InDelta(t, -0.7, sentiment.Score, 1e-6)
	assert.InDelta(t, 2.1, sentiment.Magnitude, 1e-6)
}

func TestAnalyzeEntitiesFiltering(t *testing.T) {
	fake := &fakeServer{
		entitiesResp: &languagepb.AnalyzeEntitiesResponse{
			Entities: []*languagepb.Entity{
				{Name: "Chris", Type: languagepb.Entity_PERSON},
				{Name: "Utah", Type: languagepb.Entity_LOCATION},
				{Name: "Google", Type: languagepb.Entity_ORGANIZATION},
				{Name: "WWDC", Type: languagepb.Entity_EVENT},
				{Name: "Mona Lisa", Type: languagepb.Entity_WORK_OF_ART},
			},
		},
	}
	client := newTestClient(t, fake)

	entities, err := client.AnalyzeEntities(context.Background(), language.Document{Content: "..."})
	require.NoError(t, err)
	require.Len(t, entities, 5)

	people := entities.People()
	require.Len(t, people, 1)
	assert.Equal(t, "Chris", people[0].Name)

	places := entities.Places()
	require.Len(t, places, 1)
	assert.Equal(t, "Utah", places[0].Name)

	assert.Len(t, entities.Organizations(), 1)
	assert.Len(t, entities.Events(), 1)
	assert.Len(t, entities.Artwork(), 1)
	assert.Empty(t, entities.Goods())
	assert.Empty(t, entities.Other())
}

func TestAnalyzeSyntax(t *testing.T) {
	fake := &fakeServer{
		syntaxResp: &languagepb.AnalyzeSyntaxResponse{
			Language:  "en",
			Sentences: []*languagepb.Sentence{{Text: span("Hello world.", 0)}},
			Tokens: []*languagepb.Token{
				{Text: span("Hello", 0), Lemma: "hello", PartOfSpeech: &languagepb.PartOfSpeech{Tag: languagepb.PartOfSpeech_X}},
				{Text: span("world", 6), Lemma: "world", PartOfSpeech: &languagepb.PartOfSpeech{Tag: languagepb.PartOfSpeech_NOUN}},
			},
		},
	}
	client := newTestClient(t, fake)

	annotation, err := client.AnalyzeSyntax(context.Background(), language.Document{Content: "Hello world."})
	require.NoError(t, err)
	assert.Len(t, annotation.Sentences, 1)
	require.Len(t, annotation.Tokens, 2)
	assert.Equal(t, int32(6), annotation.Tokens[1].Text.BeginOffset)
	assert.Nil(t, annotation.Sentiment)
}
