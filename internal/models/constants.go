package models

const (
	DefaultCollectionName    = "vehicle_manuals"
	DefaultSentenceGroupSize = 10
	DefaultMinTokenLength    = 30
	DefaultEmbedBatchSize    = 32
	DefaultTopK              = 5

	// chars per token used for the approximate token count
	CharsPerToken = 4

	MetaPageNumber       = "page_number"
	MetaCharCount        = "char_count"
	MetaWordCount        = "word_count"
	MetaApproxTokenCount = "approx_token_count"
	MetaSourceName       = "source_name"

	UnknownSource = "unknown"

	MalformedAnswerMessage = "Model response was not valid JSON"

	// reasoning models sometimes leak their scratchpad ahead of the answer
	ThinkTag = `(?s)<think>.*?</think>`
)
