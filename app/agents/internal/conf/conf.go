package conf

type Bootstrap struct {
	Server *Server `json:"server"`
	LLM    *LLM    `json:"llm"`
	Search *Search `json:"search"`
	Data   *Data   `json:"data"`
	Log    *Log    `json:"log"`
}

type Server struct {
	Http *HTTP `json:"http"`
}

type HTTP struct {
	Addr        string   `json:"addr"`
	Timeout     string   `json:"timeout"`
	CorsOrigins []string `json:"cors_origins"`
}

type LLM struct {
	Provider    string       `json:"provider"` // openai | anthropic | gemini
	BaseUrl     string       `json:"base_url"`
	ApiKey      string       `json:"api_key"`
	Model       string       `json:"model"`
	MaxTokens   int32        `json:"max_tokens"`
	MaxRetries  int32        `json:"max_retries"`
	RetryDelay  string       `json:"retry_delay"`
	Concurrency *Concurrency `json:"concurrency"`
}

type Concurrency struct {
	Rpm   int32 `json:"rpm"`
	Burst int32 `json:"burst"`
}

type Search struct {
	Provider    string   `json:"provider"` // "" | tavily | searxng
	MaxArticles int32    `json:"max_articles"`
	Tavily      *Tavily  `json:"tavily"`
	Searxng     *SearXNG `json:"searxng"`
}

type Tavily struct {
	ApiKey string `json:"api_key"`
}

type SearXNG struct {
	BaseUrl string `json:"base_url"`
	Timeout int32  `json:"timeout"`
}

type Data struct {
	Database *Database `json:"database"`
}

type Database struct {
	Driver string `json:"driver"` // postgres | sqlite, 为空时使用内存记录
	Source string `json:"source"`
}

type Log struct {
	Level string `json:"level"`
	File  string `json:"file"`
}
