package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/konverge/devhub/internal/database"
	"github.com/konverge/devhub/pkg/secrets"
	"github.com/sergi/go-diff/diffmatchpatch"
	"gorm.io/gorm"
)

const defaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash-lite:generateContent"

const systemPrompt = `You are an expert developer assistant embedded in the Konverge collaborative code editor.
When you suggest code changes, you MUST prepend your response with either [TYPE:NEW] (if the code is completely new) or [TYPE:UPDATED] (if you are returning a modified version of the existing file).
CRITICAL INSTRUCTION: If the type is [TYPE:UPDATED], you MUST return the ENTIRE modified file content, start to finish. DO NOT return just a snippet or fragment, otherwise the diff viewer will delete the rest of the user's file. If the type is [TYPE:NEW], just return the new snippet.
ALWAYS wrap your code block (the full file or the new snippet) inside triple backticks (e.g. ` + "```javascript" + `) OR a <code> tag.
Be concise, professional, and focused.`

var (
	codeTagRe   = regexp.MustCompile(`(?is)<code>(.*?)</code>`)
	codeBlockRe = regexp.MustCompile("(?is)```[a-z]*\n(.*?)```")
	typeFlagRe  = regexp.MustCompile(`(?i)\[TYPE:(NEW|UPDATED)\]`)
)

// Assistant строит промпт из содержимого файла и вопроса, ходит в LLM с
// личным токеном пользователя и считает unified diff между текущим кодом и
// предложением. Движок синхронизации только ретранслирует результат,
// содержимое файла он не меняет.
type Assistant struct {
	db       *database.Database
	cipher   *secrets.Cipher
	client   *http.Client
	endpoint string
}

func NewAssistant(db *database.Database, cipher *secrets.Cipher) *Assistant {
	return &Assistant{
		db:       db,
		cipher:   cipher,
		client:   &http.Client{Timeout: 60 * time.Second},
		endpoint: defaultGeminiEndpoint,
	}
}

type AssistantResult struct {
	Answer         string `json:"answer"`
	SuggestedCode  string `json:"suggested_code,omitempty"`
	Diff           string `json:"diff,omitempty"`
	SuggestionType string `json:"suggestion_type"` // new | updated
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Query отвечает на вопрос пользователя в контексте файла комнаты
func (a *Assistant) Query(ctx context.Context, userID, roomID, fileID uuid.UUID, question string) (*AssistantResult, error) {
	user, err := a.db.GetUser(userID.String())
	if err != nil {
		return nil, err
	}
	if user.EncryptedLLMToken == "" {
		return nil, ErrNoLLMToken
	}

	// Токен расшифровывается только в памяти и не логируется
	llmToken, err := a.cipher.Decrypt(user.EncryptedLLMToken)
	if err != nil {
		return nil, err
	}

	// Контекст кода не обязателен: без файла уходит голый вопрос
	var fileContent, fileName, language string
	file, err := a.db.GetFile(roomID, fileID)
	if err == nil {
		fileContent = file.Content
		fileName = file.Name
		language = file.Language
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	userMessage := question
	if fileContent != "" {
		userMessage = fmt.Sprintf("File: %s\nLanguage: %s\n```%s\n%s\n```\n\nQuestion: %s",
			fileName, language, language, fileContent, question)
	}

	rawAnswer, err := a.generate(ctx, llmToken, systemPrompt+"\n\n"+userMessage)
	if err != nil {
		return nil, err
	}

	return buildResult(rawAnswer, fileName, fileContent), nil
}

func (a *Assistant) generate(ctx context.Context, token, prompt string) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenConfig{
			Temperature:     0.3,
			MaxOutputTokens: 2048,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"?key="+token, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("LLM API error (%d): %s", resp.StatusCode, string(body))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", err
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("LLM returned an empty response")
	}

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

// buildResult вытаскивает из сырого ответа блок кода, тип предложения и
// считает diff к текущему содержимому файла
func buildResult(rawAnswer, fileName, fileContent string) *AssistantResult {
	suggested := ""
	if m := codeTagRe.FindStringSubmatch(rawAnswer); m != nil {
		suggested = strings.TrimSpace(m[1])
	} else if m := codeBlockRe.FindStringSubmatch(rawAnswer); m != nil {
		suggested = strings.TrimSpace(m[1])
	}

	suggestionType := "new"
	if m := typeFlagRe.FindStringSubmatch(rawAnswer); m != nil {
		suggestionType = strings.ToLower(m[1])
	} else if fileContent != "" {
		suggestionType = "updated"
	}

	diff := ""
	if suggested != "" && fileContent != "" {
		dmp := diffmatchpatch.New()
		patches := dmp.PatchMake(fileContent, suggested)
		diff = dmp.PatchToText(patches)
	}

	answer := codeTagRe.ReplaceAllString(rawAnswer, "")
	answer = codeBlockRe.ReplaceAllString(answer, "")
	answer = typeFlagRe.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	return &AssistantResult{
		Answer:         answer,
		SuggestedCode:  suggested,
		Diff:           diff,
		SuggestionType: suggestionType,
	}
}
