package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPromptTemplate_Validate(t *testing.T) {
	valid := &PromptTemplate{Content: "Q: {question}\nSchema:\n{schema}"}
	assert.True(t, valid.Validate())

	missingSchema := &PromptTemplate{Content: "Q: {question}"}
	assert.False(t, missingSchema.Validate())

	missingQuestion := &PromptTemplate{Content: "Schema: {schema}"}
	assert.False(t, missingQuestion.Validate())

	empty := &PromptTemplate{}
	assert.False(t, empty.Validate())
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 25, EstimateTokens(string(make([]byte, 100))))
}

func TestFeedbackSentiment_Rating(t *testing.T) {
	assert.Equal(t, 5, SentimentPositive.Rating())
	assert.Equal(t, 3, SentimentNeutral.Rating())
	assert.Equal(t, 1, SentimentNegative.Rating())
	assert.Equal(t, 3, FeedbackSentiment("unknown").Rating())
}

func TestSchemaContext_Helpers(t *testing.T) {
	ctx := &SchemaContext{RelevantTables: []TableMetadata{
		{Name: "players"},
		{Name: "countries"},
	}}

	assert.True(t, ctx.HasTable("players"))
	assert.False(t, ctx.HasTable("games"))
	assert.Equal(t, []string{"players", "countries"}, ctx.TableNames())
}

func TestTableMetadata_QualifiedName(t *testing.T) {
	withSchema := TableMetadata{SchemaName: "analytics", Name: "players"}
	assert.Equal(t, "analytics.players", withSchema.QualifiedName())

	bare := TableMetadata{Name: "players"}
	assert.Equal(t, "players", bare.QualifiedName())
}
