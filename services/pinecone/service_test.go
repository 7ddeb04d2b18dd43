package pinecone

import (
	"strings"
	"testing"

	"counsellor/models"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestSummaryText(t *testing.T) {
	university := &models.University{
		Name:                "Technical University of Munich",
		City:                "Munich",
		Country:             "Germany",
		GlobalRankingBand:   "Top 50",
		ProgramStrengths:    strings.Repeat("a", 400),
		AvgAnnualTuitionUSD: lo.ToPtr(3000.0),
		CompetitionLevel:    "High",
		VisaRiskLevel:       "Low",
		ReqGPARange:         "3.3-4.0",
	}

	summary := SummaryText(university)

	assert.True(t, strings.HasPrefix(summary, "Technical University of Munich (Munich, Germany)\n"))
	assert.Contains(t, summary, "Tuition: $3000 per year")
	assert.Contains(t, summary, "Cost of living: unknown")
	assert.Contains(t, summary, "Strengths: "+strings.Repeat("a", 300)+"\n")
	assert.NotContains(t, summary, strings.Repeat("a", 301))
}

func TestUniversityMetadataRoundTrip(t *testing.T) {
	university := &models.University{
		UniversityID:           "uni-1",
		Name:                   "Test University",
		Country:                "Canada",
		City:                   "Toronto",
		VisaRiskLevel:          "Medium",
		RequirementProfileCode: "CA_MS",
		TotalAnnualCostUSD:     lo.ToPtr(31000.0),
	}

	metadataStruct, err := structpb.NewStruct(universityMetadata(university))
	require.NoError(t, err)

	decoded := universityFromMetadata("uni-1", metadataStruct.AsMap())
	assert.Equal(t, university.Name, decoded.Name)
	assert.Equal(t, university.Country, decoded.Country)
	assert.Equal(t, university.RequirementProfileCode, decoded.RequirementProfileCode)
	require.NotNil(t, decoded.TotalAnnualCostUSD)
	assert.Equal(t, 31000.0, *decoded.TotalAnnualCostUSD)
}

func TestUniversityFromMetadataWithoutCost(t *testing.T) {
	decoded := universityFromMetadata("uni-2", nil)
	assert.Equal(t, "uni-2", decoded.UniversityID)
	assert.Nil(t, decoded.TotalAnnualCostUSD)
}
