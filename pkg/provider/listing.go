package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ListLiveModels queries the vendor's model listing endpoint and merges the
// result into the static catalog. Only plain OpenAI-family providers expose a
// compatible /models endpoint; every other descriptor returns its static list
// unchanged. Static entries keep their metadata; live-only models are
// appended with the bare ID.
func ListLiveModels(ctx context.Context, d *Descriptor, apiKey string) ([]ModelInfo, error) {
	static := make([]ModelInfo, len(d.Models))
	copy(static, d.Models)

	if d.Family != FamilyOpenAI || d.Deployments {
		return static, nil
	}

	base := strings.TrimSuffix(d.BaseURL, "/") + "/"
	client := openaisdk.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(base),
	)

	known := make(map[string]struct{}, len(static))
	for _, m := range static {
		known[m.ID] = struct{}{}
	}

	var extra []ModelInfo
	iter := client.Models.ListAutoPaging(ctx)
	for iter.Next() {
		m := iter.Current()
		if _, ok := known[m.ID]; ok {
			continue
		}
		known[m.ID] = struct{}{}
		extra = append(extra, ModelInfo{ID: m.ID, Label: m.ID})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list %s models: %w", d.ID, err)
	}

	sort.Slice(extra, func(i, j int) bool { return extra[i].ID < extra[j].ID })
	return append(static, extra...), nil
}
