package language

import (
	"cloud.google.com/go/language/apiv1/languagepb"
)

// Sentiment is the overall attitude expressed by a document or sentence.
// Score ranges from -1.0 (negative) to 1.0 (positive); magnitude is the
// absolute strength of the sentiment regardless of sign. Both bounds are
// the service's contract, not checked locally.
type Sentiment struct {
	Score     float32 `json:"score"`
	Magnitude float32 `json:"magnitude"`
}

// TextSpan is a slice of the analyzed document with its byte offset.
type TextSpan struct {
	Content     string `json:"content"`
	BeginOffset int32  `json:"begin_offset"`
}

// EntityMention holds details about a single mention of an entity.
type EntityMention struct {
	Text TextSpan `json:"text"`
	// Type is "PROPER" or "COMMON".
	Type string `json:"type"`
}

// Entity represents a named entity detected in the text: a person, place,
// organization and so on.
type Entity struct {
	Name string `json:"name"`
	Type string `json:"type"`
	// Salience is the entity's relevance to the whole document, in [0, 1].
	Salience float32           `json:"salience"`
	Metadata map[string]string `json:"metadata"`
	Mentions []EntityMention   `json:"mentions"`
}

// WikipediaURL returns the entity's Wikipedia URL, if the service supplied
// one in the metadata.
func (e *Entity) WikipediaURL() string {
	return e.Metadata["wikipedia_url"]
}

// MID returns the entity's Knowledge Graph MID, if present.
func (e *Entity) MID() string {
	return e.Metadata["mid"]
}

// Entity type values as reported by the service.
const (
	EntityPerson       = "PERSON"
	EntityLocation     = "LOCATION"
	EntityOrganization = "ORGANIZATION"
	EntityEvent        = "EVENT"
	EntityWorkOfArt    = "WORK_OF_ART"
	EntityConsumerGood = "CONSUMER_GOOD"
	EntityOther        = "OTHER"
)

// Entities is the ordered collection of entities from an analysis, with
// filtering conveniences layered over the slice.
type Entities []*Entity

func (es Entities) ofType(t string) Entities {
	var out Entities
	for _, e := range es {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// People returns the entities of type PERSON.
func (es Entities) People() Entities { return es.ofType(EntityPerson) }

// Places returns the entities of type LOCATION.
func (es Entities) Places() Entities { return es.ofType(EntityLocation) }

// Organizations returns the entities of type ORGANIZATION.
func (es Entities) Organizations() Entities { return es.ofType(EntityOrganization) }

// Events returns the entities of type EVENT.
func (es Entities) Events() Entities { return es.ofType(EntityEvent) }

// Artwork returns the entities of type WORK_OF_ART.
func (es Entities) Artwork() Entities { return es.ofType(EntityWorkOfArt) }

// Goods returns the entities of type CONSUMER_GOOD.
func (es Entities) Goods() Entities { return es.ofType(EntityConsumerGood) }

// Other returns the entities the service could not classify.
func (es Entities) Other() Entities { return es.ofType(EntityOther) }

// Token is a single lexical unit from the syntax analysis.
type Token struct {
	Text TextSpan `json:"text"`
	// PartOfSpeech is the token's grammatical tag: NOUN, VERB, PUNCT, ...
	PartOfSpeech string `json:"part_of_speech"`
	// HeadTokenIndex points at this token's head in the dependency tree.
	// A token that is its own head is a tree root.
	HeadTokenIndex int32  `json:"head_token_index"`
	Label          string `json:"label"`
	Lemma          string `json:"lemma"`
}

// Sentence is a single sentence of the document. Sentiment is non-nil only
// when sentence-level sentiment was requested.
type Sentence struct {
	Text      TextSpan   `json:"text"`
	Sentiment *Sentiment `json:"sentiment,omitempty"`
}

// Annotation is the aggregate analysis of a document: whichever of
// sentences, tokens, entities and document sentiment were requested. Fields
// for features that were not requested are zero.
type Annotation struct {
	Sentences []Sentence `json:"sentences"`
	Tokens    []Token    `json:"tokens"`
	Entities  Entities   `json:"entities"`
	Sentiment *Sentiment `json:"sentiment,omitempty"`
	// Language is the document language, detected or as submitted.
	Language string `json:"language"`
}

func sentimentFromProto(s *languagepb.Sentiment) *Sentiment {
	if s == nil {
		return nil
	}
	return &Sentiment{Score: s.Score, Magnitude: s.Magnitude}
}

func spanFromProto(t *languagepb.TextSpan) TextSpan {
	if t == nil {
		return TextSpan{}
	}
	return TextSpan{Content: t.Content, BeginOffset: t.BeginOffset}
}

func entityFromProto(e *languagepb.Entity) *Entity {
	md := make(map[string]string, len(e.Metadata))
	for k, v := range e.Metadata {
		md[k] = v
	}
	mentions := make([]EntityMention, 0, len(e.Mentions))
	for _, m := range e.Mentions {
		mentions = append(mentions, EntityMention{
			Text: spanFromProto(m.Text),
			Type: m.Type.String(),
		})
	}
	return &Entity{
		Name:     e.Name,
		Type:     e.Type.String(),
		Salience: e.Salience,
		Metadata: md,
		Mentions: mentions,
	}
}

func entitiesFromProto(pbs []*languagepb.Entity) Entities {
	var out Entities
	for _, e := range pbs {
		out = append(out, entityFromProto(e))
	}
	return out
}

func tokenFromProto(t *languagepb.Token) Token {
	tok := Token{
		Text:  spanFromProto(t.Text),
		Lemma: t.Lemma,
	}
	if t.PartOfSpeech != nil {
		tok.PartOfSpeech = t.PartOfSpeech.Tag.String()
	}
	if t.DependencyEdge != nil {
		tok.HeadTokenIndex = t.DependencyEdge.HeadTokenIndex
		tok.Label = t.DependencyEdge.Label.String()
	}
	return tok
}

func sentenceFromProto(s *languagepb.Sentence) Sentence {
	return Sentence{
		Text:      spanFromProto(s.Text),
		Sentiment: sentimentFromProto(s.Sentiment),
	}
}

func annotationFromProto(resp *languagepb.AnnotateTextResponse) *Annotation {
	a := &Annotation{
		Entities:  entitiesFromProto(resp.Entities),
		Sentiment: sentimentFromProto(resp.DocumentSentiment),
		Language:  resp.Language,
	}
	for _, s := range resp.Sentences {
		a.Sentences = append(a.Sentences, sentenceFromProto(s))
	}
	for _, t := range resp.Tokens {
		a.Tokens = append(a.Tokens, tokenFromProto(t))
	}
	return a
}
