package port

import "phrasedex/internal/domain"

type Tokenizer interface {
	Tokenize(text string) []domain.Token
}
