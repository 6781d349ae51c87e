package models

// UnknownDate 无法提取发布日期时使用的占位值
const UnknownDate = "unknown date"

// SearchHit 搜索结果页中的一条结果
type SearchHit struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	DateText string `json:"date"`
}

// ResultRecord 一条带正文的搜索结果记录
//
// 在解析搜索结果页时创建(BodyText为空),页面抓取完成后按下标回填正文。
type ResultRecord struct {
	Engine             SearchEngine `json:"engine"`
	Keyword            string       `json:"keyword"`
	Title              string       `json:"title"`
	PublishedDate      string       `json:"published_date"`
	URL                string       `json:"url"`
	BodyText           string       `json:"body_text"`
	OutboundLinks      []string     `json:"outbound_links,omitempty"`
	InteractiveTargets []string     `json:"interactive_targets,omitempty"`
}

// NewResultRecord 根据搜索结果创建记录
func NewResultRecord(engine SearchEngine, keyword string, hit SearchHit) ResultRecord {
	date := hit.DateText
	if date == "" {
		date = UnknownDate
	}
	return ResultRecord{
		Engine:        engine,
		Keyword:       keyword,
		Title:         hit.Title,
		PublishedDate: date,
		URL:           hit.URL,
	}
}

// Merge 将抓取结果合并进记录
func (r *ResultRecord) Merge(outcome FetchOutcome, withLinks bool) {
	r.BodyText = outcome.Text
	if withLinks {
		r.OutboundLinks = outcome.Links
		r.InteractiveTargets = outcome.Buttons
	}
}

// FetchOutcome 单个页面的抓取结果
//
// 重试耗尽或被取消时各字段为空但不为nil,保证与URL列表按下标对齐。
type FetchOutcome struct {
	Text    string   `json:"text"`
	Links   []string `json:"links"`
	Buttons []string `json:"buttons"`
}

// EmptyOutcome 返回空的抓取结果
func EmptyOutcome() FetchOutcome {
	return FetchOutcome{
		Text:    "",
		Links:   []string{},
		Buttons: []string{},
	}
}

// IsEmpty 是否为空结果
func (o FetchOutcome) IsEmpty() bool {
	return o.Text == "" && len(o.Links) == 0 && len(o.Buttons) == 0
}
