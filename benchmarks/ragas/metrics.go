// ABOUTME: Metrics for faithfulness, context recall, and source recall
// ABOUTME: Deterministic evaluation based on ground truth comparison
package ragas

import (
	"fmt"
	"strings"

	"github.com/harper/docqa/internal/models"
)

// MetricsCalculator computes RAGAS scores for benchmark tests
type MetricsCalculator struct{}

// NewMetricsCalculator creates a new metrics calculator
func NewMetricsCalculator() *MetricsCalculator {
	return &MetricsCalculator{}
}

// CalculateFaithfulness computes faithfulness score (0.0-1.0)
// Faithfulness = Does the response match retrieved context? No hallucinations?
func (m *MetricsCalculator) CalculateFaithfulness(
	response string,
	expectedInResponse []string,
	forbiddenInResponse []string,
) (float64, string) {
	responseUpper := strings.ToUpper(response)

	// Check all expected items are present
	missingItems := []string{}
	for _, expected := range expectedInResponse {
		if !strings.Contains(responseUpper, strings.ToUpper(expected)) {
			missingItems = append(missingItems, expected)
		}
	}

	// Check no forbidden items are present
	forbiddenFound := []string{}
	for _, forbidden := range forbiddenInResponse {
		if strings.Contains(responseUpper, strings.ToUpper(forbidden)) {
			forbiddenFound = append(forbiddenFound, forbidden)
		}
	}

	// Calculate score
	// Perfect score (1.0) requires all expected items AND no forbidden items
	if len(missingItems) == 0 && len(forbiddenFound) == 0 {
		return 1.0, "Perfect faithfulness - response matches expected ground truth"
	}

	// Partial failure
	if len(missingItems) > 0 && len(forbiddenFound) > 0 {
		return 0.0, fmt.Sprintf(
			"Faithfulness failure - missing expected items: %v, forbidden items found: %v",
			missingItems, forbiddenFound,
		)
	}

	if len(missingItems) > 0 {
		return 0.5, fmt.Sprintf(
			"Partial faithfulness - missing expected items: %v",
			missingItems,
		)
	}

	if len(forbiddenFound) > 0 {
		return 0.5, fmt.Sprintf(
			"Partial faithfulness - forbidden items found: %v",
			forbiddenFound,
		)
	}

	return 1.0, "Faithfulness verified"
}

// CalculateContextRecall computes context recall score (0.0-1.0)
// Context Recall = Did the retrieved chunks contain the expected facts?
func (m *MetricsCalculator) CalculateContextRecall(
	retrievedContext []string,
	expectedContextItems []string,
) (float64, string) {
	if len(expectedContextItems) == 0 {
		return 1.0, "No context retrieval required"
	}

	// Join all retrieved context for searching
	allContext := strings.ToUpper(strings.Join(retrievedContext, " "))

	// Check how many expected items were retrieved
	foundCount := 0
	missingItems := []string{}

	for _, expectedItem := range expectedContextItems {
		if strings.Contains(allContext, strings.ToUpper(expectedItem)) {
			foundCount++
		} else {
			missingItems = append(missingItems, expectedItem)
		}
	}

	// Calculate recall as proportion of expected items found
	recall := float64(foundCount) / float64(len(expectedContextItems))

	if recall == 1.0 {
		return 1.0, "Perfect context recall - all expected items retrieved"
	}

	return recall, fmt.Sprintf(
		"Partial context recall (%.2f) - missing items: %v",
		recall, missingItems,
	)
}

// CalculateSourceRecall computes the fraction of expected documents among the retrieved results
func (m *MetricsCalculator) CalculateSourceRecall(
	results []models.QueryResult,
	expectedDocuments []string,
) (float64, string) {
	if len(expectedDocuments) == 0 {
		return 1.0, "No source documents required"
	}

	retrieved := make(map[string]bool, len(results))
	for _, r := range results {
		retrieved[r.DocumentID] = true
	}

	missing := []string{}
	for _, doc := range expectedDocuments {
		if !retrieved[doc] {
			missing = append(missing, doc)
		}
	}

	recall := float64(len(expectedDocuments)-len(missing)) / float64(len(expectedDocuments))
	if recall == 1.0 {
		return 1.0, "All expected documents retrieved"
	}
	return recall, fmt.Sprintf("Partial source recall (%.2f) - missing documents: %v", recall, missing)
}

// EvaluateTest scores one scenario from the generated answer and the retrieved results
func (m *MetricsCalculator) EvaluateTest(
	scenario TestScenario,
	finalResponse string,
	results []models.QueryResult,
) TestResult {
	faithfulness, faithfulnessDetail := m.CalculateFaithfulness(
		finalResponse,
		scenario.GroundTruth.ExpectedInResponse,
		scenario.GroundTruth.ForbiddenInResponse,
	)

	retrievedContext := make([]string, len(results))
	for i, r := range results {
		retrievedContext[i] = r.Text
	}
	recall, recallDetail := m.CalculateContextRecall(
		retrievedContext,
		scenario.GroundTruth.ExpectedContextItems,
	)

	sourceRecall, sourceDetail := m.CalculateSourceRecall(results, scenario.GroundTruth.ExpectedDocuments)

	overallScore := (faithfulness + recall + sourceRecall) / 3.0

	// Every metric must reach 0.9
	status := "FAIL"
	if faithfulness >= 0.9 && recall >= 0.9 && sourceRecall >= 0.9 {
		status = "PASS"
	}

	return TestResult{
		TestID:             scenario.ID,
		TestName:           scenario.Name,
		FaithfulnessScore:  faithfulness,
		ContextRecallScore: recall,
		SourceRecallScore:  sourceRecall,
		OverallScore:       overallScore,
		Status:             status,
		Details: map[string]interface{}{
			"faithfulness_detail":  faithfulnessDetail,
			"recall_detail":        recallDetail,
			"source_recall_detail": sourceDetail,
			"final_response":       truncate(finalResponse, 200),
			"context_items":        len(results),
		},
	}
}
