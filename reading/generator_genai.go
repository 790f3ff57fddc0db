package reading

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// GenAIGenerator is the Gemini strategy: structured output constrained by a
// response schema, so the model can only answer in the Reading shape.
type GenAIGenerator struct {
	client *genai.Client
	model  string
}

// NewGenAIGenerator creates the Gemini strategy.
func NewGenAIGenerator(ctx context.Context, apiKey, model string) (*GenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("reading: genai API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("reading: create genai client: %w", err)
	}
	return &GenAIGenerator{client: client, model: model}, nil
}

func (g *GenAIGenerator) Name() string { return "genai" }

const genaiInstructions = `You write warm, grounded natal chart readings.
Use ONLY the placements and canonical big three provided in the input JSON.
Never state a sun, moon, or rising sign other than the canonical ones.
If timeUnknown is true, do not mention rising sign, ascendant, or houses.
Respond with the reading JSON only.`

// Generate calls Gemini with the request as grounding context and decodes
// the structured response. A response that does not match the schema is a
// hard failure.
func (g *GenAIGenerator) Generate(ctx context.Context, req *Request) (*Reading, error) {
	input, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("reading: marshal request: %w", err)
	}

	prompt := genaiInstructions + "\n\nInput:\n" + string(input)
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   readingSchema(),
		})
	if err != nil {
		return nil, fmt.Errorf("reading: genai generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("reading: empty genai response")
	}

	var out Reading
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("reading: decode genai response: %w", err)
	}
	if err := Validate(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func readingSchema() *genai.Schema {
	str := func() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }
	strList := func() *genai.Schema {
		return &genai.Schema{Type: genai.TypeArray, Items: str()}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title": str(),
			"bigThree": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"sun":    str(),
					"moon":   str(),
					"rising": {Type: genai.TypeString, Nullable: genai.Ptr(true)},
				},
				Required: []string{"sun", "moon"},
			},
			"snapshot":      str(),
			"coreThemes":    strList(),
			"strengths":     strList(),
			"shadows":       strList(),
			"relationships": str(),
			"careerCalling": str(),
			"growthKeys":    strList(),
			"paradox": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"tension": str(),
					"gift":    str(),
				},
				Required: []string{"tension", "gift"},
			},
			"mantra":     str(),
			"disclaimer": str(),
		},
		Required: []string{
			"title", "bigThree", "snapshot", "coreThemes", "strengths",
			"shadows", "relationships", "careerCalling", "growthKeys",
			"paradox", "mantra", "disclaimer",
		},
	}
}
