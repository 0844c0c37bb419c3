package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/sibyl/agents"
	coreerrors "github.com/adalundhe/sibyl/core/errors"
)

func TestAnalyze_EmptyQuestion(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := Analyze(q, Context{})
		assert.ErrorIs(t, err, coreerrors.ErrEmptyQuestion)
	}
}

func TestAnalyze_StructuredOutputScenario(t *testing.T) {
	decision, err := Analyze("Extract user data in JSON format", Context{})
	require.NoError(t, err)

	assert.Equal(t, agents.KindStructured, decision.ChosenAgent)
	assert.Equal(t, CategoryStructuredOutput, decision.Category)
	assert.GreaterOrEqual(t, decision.Confidence, 0.85)
}

func TestAnalyze_WorkflowScenario(t *testing.T) {
	decision, err := Analyze("Create a multi-step workflow to analyze our data", Context{})
	require.NoError(t, err)

	assert.Equal(t, agents.KindWorkflow, decision.ChosenAgent)
	assert.Equal(t, CategoryWorkflow, decision.Category)
	assert.Equal(t, Complex, decision.Complexity)
}

func TestAnalyze_RecencySetsNeedsWeb(t *testing.T) {
	for _, q := range []string{
		"What is the latest release?",
		"Any news today about the merger?",
		"Show me current pricing",
	} {
		decision, err := Analyze(q, Context{})
		require.NoError(t, err)
		assert.True(t, decision.NeedsWeb, "question %q should demand web search", q)
	}

	decision, err := Analyze("What are the company values?", Context{})
	require.NoError(t, err)
	assert.False(t, decision.NeedsWeb)
}

func TestAnalyze_PriorityOrder(t *testing.T) {
	// Structured signals beat workflow signals when both are present.
	decision, err := Analyze("Parse the pipeline config into JSON", Context{})
	require.NoError(t, err)
	assert.Equal(t, CategoryStructuredOutput, decision.Category)

	// Workflow beats analysis.
	decision, err = Analyze("Design a pipeline to review our logs", Context{})
	require.NoError(t, err)
	assert.Equal(t, CategoryWorkflow, decision.Category)
}

func TestAnalyze_DefaultQA(t *testing.T) {
	decision, err := Analyze("Who wrote the handbook?", Context{})
	require.NoError(t, err)

	assert.Equal(t, CategoryQA, decision.Category)
	assert.Equal(t, agents.KindStructured, decision.ChosenAgent)
	assert.GreaterOrEqual(t, decision.Confidence, 0.6)
}

func TestAnalyze_AnalysisRoutesToHybrid(t *testing.T) {
	decision, err := Analyze("Compare the two quarterly reports", Context{})
	require.NoError(t, err)

	assert.Equal(t, CategoryAnalysis, decision.Category)
	assert.Equal(t, agents.KindHybrid, decision.ChosenAgent)
}

func TestAnalyze_FallbackOrderIsTotal(t *testing.T) {
	decision, err := Analyze("Extract fields as JSON", Context{})
	require.NoError(t, err)

	assert.Len(t, decision.FallbackOrder, len(agents.Kinds())-1)
	assert.NotContains(t, decision.FallbackOrder, decision.ChosenAgent)

	seen := map[agents.Kind]bool{decision.ChosenAgent: true}
	for _, k := range decision.FallbackOrder {
		assert.False(t, seen[k], "duplicate agent %s in fallback order", k)
		seen[k] = true
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	first, err := Analyze("Summarize and compare the detailed quarterly numbers", Context{MultiTurn: true})
	require.NoError(t, err)
	second, err := Analyze("Summarize and compare the detailed quarterly numbers", Context{MultiTurn: true})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAssessComplexity(t *testing.T) {
	tests := []struct {
		name     string
		question string
		ctx      Context
		want     Complexity
	}{
		{"short plain question", "who is on call", Context{}, Simple},
		{"multi-part", "fetch the logs and then grep them", Context{}, Moderate},
		{"complex keyword plus multi-part", "give a comprehensive report and also a summary table", Context{}, Complex},
		{"context signals stack", "short question and more", Context{MultiTurn: true, RequiresValidation: true}, Moderate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lower := tt.question
			got := assessComplexity(lower, tokenSet(lower), tt.ctx)
			assert.Equal(t, tt.want, got)
		})
	}
}
