// Package settings holds the user-editable application settings: the
// OpenAI-compatible endpoint the agents talk to, the HuggingFace token, and
// training defaults. Secrets are masked on the way out and masked values are
// ignored on the way back in, so a client can round-trip the settings form
// without ever holding the real key.
package settings

import "strings"

// OpenAI configures the OpenAI-compatible API used by the agents.
type OpenAI struct {
	BaseURL string `json:"base_url,omitempty"`
	APIKey  string `json:"api_key,omitempty"`
	Model   string `json:"model,omitempty"`
}

// HuggingFace holds the hub token used for model and dataset downloads.
type HuggingFace struct {
	Token string `json:"token,omitempty"`
}

// Training carries default hyperparameters for new fine-tuning runs.
type Training struct {
	Method       string `json:"method,omitempty"`
	BatchSize    int    `json:"batch_size,omitempty"`
	LearningRate string `json:"learning_rate,omitempty"`
	Epochs       int    `json:"epochs,omitempty"`
}

// Storage configures where downloaded models are cached.
type Storage struct {
	ModelCacheDir string `json:"model_cache_dir,omitempty"`
}

// Settings is the complete application settings document.
type Settings struct {
	OpenAI      *OpenAI      `json:"openai,omitempty"`
	HuggingFace *HuggingFace `json:"huggingface,omitempty"`
	Training    *Training    `json:"training,omitempty"`
	Storage     *Storage     `json:"storage,omitempty"`
}

// MaskSecret obscures a credential for display. Long keys keep their first
// and last characters so the user can recognize which key is configured.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) > 12 {
		return s[:8] + "..." + s[len(s)-4:]
	}
	return "***"
}

// IsMasked reports whether a value is a masked placeholder rather than a
// real credential.
func IsMasked(s string) bool {
	return s == "***" || strings.Contains(s, "...")
}

// Masked returns a copy safe to send to clients.
func (s Settings) Masked() Settings {
	out := s
	if s.OpenAI != nil {
		openai := *s.OpenAI
		openai.APIKey = MaskSecret(openai.APIKey)
		out.OpenAI = &openai
	}
	if s.HuggingFace != nil {
		hf := *s.HuggingFace
		hf.Token = MaskSecret(hf.Token)
		out.HuggingFace = &hf
	}
	return out
}

// Merge overlays an update onto the current settings. Sections absent from
// the update are kept, and masked secrets in the update are replaced with the
// stored originals so an echoed-back form does not wipe credentials.
func Merge(current, update Settings) Settings {
	merged := current

	if update.OpenAI != nil {
		openai := *update.OpenAI
		if IsMasked(openai.APIKey) && current.OpenAI != nil {
			openai.APIKey = current.OpenAI.APIKey
		}
		merged.OpenAI = &openai
	}
	if update.HuggingFace != nil {
		hf := *update.HuggingFace
		if IsMasked(hf.Token) && current.HuggingFace != nil {
			hf.Token = current.HuggingFace.Token
		}
		merged.HuggingFace = &hf
	}
	if update.Training != nil {
		training := *update.Training
		merged.Training = &training
	}
	if update.Storage != nil {
		storage := *update.Storage
		merged.Storage = &storage
	}
	return merged
}

// ModelDefaults extracts the model configuration handed to new agent
// sessions. Zero values mean "not configured".
func (s Settings) ModelDefaults() (model, apiKey, baseURL string) {
	if s.OpenAI == nil {
		return "", "", ""
	}
	return s.OpenAI.Model, s.OpenAI.APIKey, s.OpenAI.BaseURL
}
