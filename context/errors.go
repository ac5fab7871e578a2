package context

import "fmt"

// OverflowError is the common type satisfied by all admission-time overflow
// errors. Callers that only care "did admission fail because the request
// doesn't fit" can check errors.As(err, new(OverflowError)) without naming
// the concrete variant.
type OverflowError interface {
	error
	isOverflow()
}

// TokenOverflowError is returned when admitting a request would exceed
// max_tokens.
type TokenOverflowError struct {
	ActiveTokenCount int
	PromptLength     int
	MaxTokens        int
}

func (e *TokenOverflowError) Error() string {
	return fmt.Sprintf("token overflow: active_token_count (%d) + prompt length (%d) > max_tokens (%d)",
		e.ActiveTokenCount, e.PromptLength, e.MaxTokens)
}
func (*TokenOverflowError) isOverflow() {}

// RequestOverflowError is returned when admitting a request would exceed
// max_requests.
type RequestOverflowError struct {
	TotalRequestCount int
	MaxRequests       int
}

func (e *RequestOverflowError) Error() string {
	return fmt.Sprintf("request overflow: total_request_count (%d) >= max_requests (%d)",
		e.TotalRequestCount, e.MaxRequests)
}
func (*RequestOverflowError) isOverflow() {}

// MaxSequenceLengthOverflowError is returned when prompt length plus the
// requested generation length would exceed max_sequence_length.
type MaxSequenceLengthOverflowError struct {
	PromptLength      int
	TokensToGenerate  int
	MaxSequenceLength int
}

func (e *MaxSequenceLengthOverflowError) Error() string {
	return fmt.Sprintf("max sequence length overflow: prompt length (%d) + tokens_to_generate (%d) > max_sequence_length (%d)",
		e.PromptLength, e.TokensToGenerate, e.MaxSequenceLength)
}
func (*MaxSequenceLengthOverflowError) isOverflow() {}

// ChunkOverflowError is returned when the allocator cannot satisfy an
// admission's chunk request in safe mode.
type ChunkOverflowError struct {
	ChunksNeeded int
	ChunksAvail  int
}

func (e *ChunkOverflowError) Error() string {
	return fmt.Sprintf("chunk overflow: need %d chunks, %d available under safe allocation",
		e.ChunksNeeded, e.ChunksAvail)
}
func (*ChunkOverflowError) isOverflow() {}

// ActiveRequestCountOverflowError is raised when graph-capture warmup is
// requested for more requests than max_requests supports. This indicates a
// configuration bug in the caller and is intentionally fatal: callers
// should not retry, they should fix the warmup request count.
type ActiveRequestCountOverflowError struct {
	MaxRequestCount    int
	ActiveRequestCount int
}

func (e *ActiveRequestCountOverflowError) Error() string {
	return fmt.Sprintf("active_request_count (%d) > max_request_count (%d)",
		e.ActiveRequestCount, e.MaxRequestCount)
}
