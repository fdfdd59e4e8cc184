package session

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kagebridge/gravitybridge/internal/cdp"
	"github.com/kagebridge/gravitybridge/internal/scripts"
)

// cdpProber implements monitor.Prober against a live CdpClient, decoding
// each probe script's return shape per spec.md §4.2/§4.7.
type cdpProber struct {
	client CdpClient
}

func (p *cdpProber) evaluate(ctx context.Context, name scripts.Name, out interface{}) error {
	raw, err := p.client.Call(ctx, "Runtime.evaluate", map[string]interface{}{
		"expression":    scripts.Source(name),
		"returnByValue": true,
	}, cdp.CallOptions{AutoContext: true})
	if err != nil {
		return err
	}
	var wrapped struct {
		Result struct {
			Value json.RawMessage `json:"value"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(wrapped.Result.Value, out)
}

func (p *cdpProber) StopButton(ctx context.Context) (bool, error) {
	var body struct {
		IsGenerating bool `json:"isGenerating"`
	}
	if err := p.evaluate(ctx, scripts.StopButtonProbe, &body); err != nil {
		return false, err
	}
	return body.IsGenerating, nil
}

func (p *cdpProber) Quota(ctx context.Context) (bool, error) {
	var exhausted bool
	if err := p.evaluate(ctx, scripts.QuotaProbe, &exhausted); err != nil {
		return false, err
	}
	return exhausted, nil
}

// Text tries the structured extractor first (segments tagged by kind) and
// falls back to the legacy plain-text extractor when the structured one
// returns an unexpected shape, matching spec.md's "downgrade, continue"
// policy for InvalidPayload.
func (p *cdpProber) Text(ctx context.Context) (string, []string, bool, error) {
	var structured struct {
		Source   string `json:"source"`
		Segments []struct {
			Kind string `json:"kind"`
			Text string `json:"text"`
		} `json:"segments"`
	}
	if err := p.evaluate(ctx, scripts.StructuredTextProbe, &structured); err == nil && structured.Source == "structured" {
		var body strings.Builder
		var activity []string
		for _, seg := range structured.Segments {
			switch seg.Kind {
			case "assistant-body":
				if body.Len() > 0 {
					body.WriteString("\n")
				}
				body.WriteString(seg.Text)
			case "thinking", "tool-call", "tool-result":
				activity = append(activity, seg.Text)
			case "feedback":
				// skipped per §4.2's classifier contract
			}
		}
		return body.String(), activity, true, nil
	}

	var legacy string
	if err := p.evaluate(ctx, scripts.LegacyTextProbe, &legacy); err != nil {
		return "", nil, false, err
	}
	return legacy, nil, false, nil
}

func (p *cdpProber) ProcessLog(ctx context.Context) ([]string, error) {
	var lines []string
	if err := p.evaluate(ctx, scripts.ProcessLogProbe, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

func (p *cdpProber) ClickStop(ctx context.Context) (bool, string, error) {
	var result struct {
		OK  bool   `json:"ok"`
		Err string `json:"err"`
	}
	if err := p.evaluate(ctx, scripts.StopButtonClick, &result); err != nil {
		return false, "click", err
	}
	return result.OK, "click", nil
}
