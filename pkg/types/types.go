package types

type CreateSessionReq struct {
	Locale string `json:"locale"`
	Music  bool   `json:"music"`
}

type CreateSessionResp struct {
	SessionID string `json:"session_id"`
	WSURL     string `json:"ws_url"`
}

type SummaryResp struct {
	SessionID  string `json:"session_id"`
	CreatedAt  int64  `json:"created_at"`
	Locale     string `json:"locale"`
	Connected  bool   `json:"connected"`
	Mode       string `json:"mode"`
	Emotion    string `json:"emotion"`
	RetryCount int    `json:"retry_count"`
	Turns      int64  `json:"turns"`
	Fallbacks  int64  `json:"fallbacks"`
	Commands   int64  `json:"commands"`
}

// Generation endpoint body. Field names follow the Gemini REST shape.

type Part struct {
	Text string `json:"text"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type GoogleSearch struct{}

type Tool struct {
	GoogleSearch *GoogleSearch `json:"google_search,omitempty"`
}

type GenerateReq struct {
	Prompt            string    `json:"prompt"`
	Contents          []Content `json:"contents"`
	SystemInstruction *Content  `json:"systemInstruction,omitempty"`
	Tools             []Tool    `json:"tools,omitempty"`
}

func NewGenerateReq(prompt, system string, search bool) GenerateReq {
	req := GenerateReq{
		Prompt:   prompt,
		Contents: []Content{{Parts: []Part{{Text: prompt}}}},
	}
	if system != "" {
		req.SystemInstruction = &Content{Parts: []Part{{Text: system}}}
	}
	if search {
		req.Tools = []Tool{{GoogleSearch: &GoogleSearch{}}}
	}
	return req
}

// UserText returns the prompt, falling back to the text of the last content.
func (r GenerateReq) UserText() string {
	if r.Prompt != "" {
		return r.Prompt
	}
	for i := len(r.Contents) - 1; i >= 0; i-- {
		for _, p := range r.Contents[i].Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}

func (r GenerateReq) SystemText() string {
	if r.SystemInstruction == nil {
		return ""
	}
	var s string
	for _, p := range r.SystemInstruction.Parts {
		s += p.Text
	}
	return s
}

func (r GenerateReq) WantsSearch() bool {
	for _, t := range r.Tools {
		if t.GoogleSearch != nil {
			return true
		}
	}
	return false
}

type GenerateResp struct {
	Text string `json:"text"`
}

type CommandReq struct {
	Command string `json:"command"`
}

type CommandResp struct {
	Status  string `json:"status"`
	Command string `json:"command"`
}

type ErrorResp struct {
	Detail string `json:"detail"`
}
