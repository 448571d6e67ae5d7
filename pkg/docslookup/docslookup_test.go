package docslookup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticClientReturnsConfiguredResults(t *testing.T) {
	c := Static{Results: map[string][]Result{
		"azure load balancer": {{Title: "Azure Load Balancer overview", URL: "https://learn.microsoft.com/azure/lb"}},
	}}

	results, err := c.Search(context.Background(), "azure load balancer")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Azure Load Balancer overview", results[0].Title)
}

func TestStaticClientUnknownQueryReturnsEmpty(t *testing.T) {
	c := Static{Results: map[string][]Result{}}
	results, err := c.Search(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.Empty(t, results)
}
