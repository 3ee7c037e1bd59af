package llm

import "context"

// Stub is a pure deterministic Client for tests and offline runs: it
// returns pre-programmed answers keyed by input text and records every
// call it receives.
type Stub struct {
	// Targets maps step text to the extracted target phrase.
	Targets map[string]string

	// TypingTexts maps step text to the typing payload.
	TypingTexts map[string]string

	// Fallback is returned verbatim from PlanFallback.
	Fallback string

	// Err, when set, is returned from every call.
	Err error

	// Calls records method invocations in order, as "method:input".
	Calls []string
}

func (s *Stub) ExtractTarget(ctx context.Context, stepText string) (string, error) {
	s.Calls = append(s.Calls, "target:"+stepText)
	if s.Err != nil {
		return "", s.Err
	}
	return s.Targets[stepText], nil
}

func (s *Stub) ExtractTypingText(ctx context.Context, stepText string) (string, error) {
	s.Calls = append(s.Calls, "typing:"+stepText)
	if s.Err != nil {
		return "", s.Err
	}
	return s.TypingTexts[stepText], nil
}

func (s *Stub) PlanFallback(ctx context.Context, instruction, uiSummary string) (string, error) {
	s.Calls = append(s.Calls, "fallback:"+instruction)
	if s.Err != nil {
		return "", s.Err
	}
	return s.Fallback, nil
}
