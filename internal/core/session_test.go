package core

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/RecoveryAshes/llm-online-assistant/internal/crawlers"
	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
)

const googleResultsPage = `<html><body>
<div class="g"><a href="https://a.example/1"><h3>First result</h3></a><span class="f">2024-01-02</span></div>
<div class="g"><span>广告, 没有链接</span></div>
<div class="g"><a href="https://b.example/2">Second result</a></div>
<div class="g"><a href="/url?q=https://c.example/3&amp;sa=U">Third result</a></div>
</body></html>`

var errNoRoute = errors.New("no route")

// routingRequester 按URL返回预设响应,未配置的URL返回连接错误
type routingRequester struct {
	mu     sync.Mutex
	routes map[string]*crawlers.Response
	calls  []string
}

func newRoutingRequester() *routingRequester {
	return &routingRequester{routes: make(map[string]*crawlers.Response)}
}

func (r *routingRequester) route(rawURL string, status int, body string) {
	r.routes[rawURL] = &crawlers.Response{StatusCode: status, Header: http.Header{}, Body: []byte(body)}
}

func (r *routingRequester) Get(rawURL string, header http.Header) (*crawlers.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, rawURL)
	if header.Get("User-Agent") == "" {
		return nil, errors.New("missing user agent")
	}
	resp, ok := r.routes[rawURL]
	if !ok {
		return nil, errNoRoute
	}
	copied := *resp
	return &copied, nil
}

func (r *routingRequester) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func testIdentities(t *testing.T) *IdentityManager {
	t.Helper()
	im, err := NewIdentityManager(&models.IdentityConfig{UserAgents: []string{"UA-1", "UA-2"}}, nil)
	if err != nil {
		t.Fatalf("创建身份管理器失败: %v", err)
	}
	return im
}

func newTestSession(t *testing.T, requester crawlers.Requester, opts SessionOptions) *Session {
	t.Helper()
	identities := testIdentities(t)
	fetcher := crawlers.NewPageFetcher(requester, identities, crawlers.FetcherConfig{MaxRetries: 2, ExtractLinks: opts.WithLinks})
	return NewSession(requester, identities, fetcher, &DocumentWriter{Now: fixedClock, WithLinks: opts.WithLinks}, opts)
}

func googleRoutes() *routingRequester {
	r := newRoutingRequester()
	r.route("https://www.google.com/search?q=rust ownership&num=10", http.StatusOK, googleResultsPage)
	r.route("https://a.example/1", http.StatusOK, `<p>Ownership rules.</p><a href="https://x.example">x</a>`)
	r.route("https://b.example/2", http.StatusOK, `<p>借用与引用</p><p>Borrowing.</p>`)
	r.route("https://c.example/3", http.StatusOK, `<p>Third page.</p>`)
	return r
}

func TestSession_Run(t *testing.T) {
	dir := t.TempDir()
	requester := googleRoutes()
	progress := make(chan models.ProgressEvent, 32)
	session := newTestSession(t, requester, SessionOptions{Progress: progress})

	result, err := session.Run(models.ScrapeRequest{
		Keywords:        []string{"rust ownership"},
		PageCount:       10,
		Engine:          models.EngineGoogle,
		OutputDirectory: dir,
	})
	if err != nil {
		t.Fatalf("会话失败: %v", err)
	}

	if result.Status != models.SessionCompleted || session.Status() != models.SessionCompleted {
		t.Errorf("期望状态completed, 实际 %s / %s", result.Status, session.Status())
	}
	if result.SessionID != session.ID() {
		t.Error("会话ID不一致")
	}

	wantURLs := []string{"https://a.example/1", "https://b.example/2", "https://c.example/3"}
	wantText := []string{"Ownership rules.", "借用与引用\nBorrowing.", "Third page."}
	if len(result.Records) != len(wantURLs) {
		t.Fatalf("期望 %d 条记录, 实际 %d", len(wantURLs), len(result.Records))
	}
	for i, rec := range result.Records {
		if rec.URL != wantURLs[i] || rec.BodyText != wantText[i] {
			t.Errorf("第%d条记录不正确: %+v", i+1, rec)
		}
		if rec.Keyword != "rust ownership" || rec.Engine != models.EngineGoogle {
			t.Errorf("第%d条记录的关键词或引擎不正确: %+v", i+1, rec)
		}
		if rec.OutboundLinks != nil {
			t.Error("未启用链接提取时不应回填链接")
		}
	}
	if result.Records[0].PublishedDate != "2024-01-02" || result.Records[1].PublishedDate != models.UnknownDate {
		t.Errorf("日期不正确: %q, %q", result.Records[0].PublishedDate, result.Records[1].PublishedDate)
	}

	if result.Path != filepath.Join(dir, "rust ownership.txt") {
		t.Errorf("路径不正确: %s", result.Path)
	}
	data, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatalf("读取文档失败: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "NUMBER: 3\n") || strings.Contains(content, "NUMBER: 4\n") {
		t.Error("文档应包含3条编号记录")
	}
	if result.Stats.CharsIncludingWhitespace != utf8.RuneCount(data) {
		t.Errorf("总字符数应等于文件长度: %d != %d", result.Stats.CharsIncludingWhitespace, utf8.RuneCount(data))
	}

	// 1次搜索 + 3个页面
	if got := requester.callCount(); got != 4 {
		t.Errorf("期望4次请求, 实际 %d", got)
	}

	close(progress)
	var kinds []models.ProgressKind
	for ev := range progress {
		if ev.SessionID != session.ID() {
			t.Error("进度事件缺少会话ID")
		}
		kinds = append(kinds, ev.Kind)
	}
	wantKinds := []models.ProgressKind{
		models.ProgressSessionStarted,
		models.ProgressKeywordStarted,
		models.ProgressResultsExtracted,
		models.ProgressKeywordFinished,
		models.ProgressSessionFinished,
	}
	if len(kinds) != len(wantKinds) {
		t.Fatalf("进度事件不正确: %v", kinds)
	}
	for i := range kinds {
		if kinds[i] != wantKinds[i] {
			t.Errorf("第%d个进度事件期望 %s, 实际 %s", i+1, wantKinds[i], kinds[i])
		}
	}
}

func TestSession_KeywordOrderAndSearchFailure(t *testing.T) {
	requester := newRoutingRequester()
	requester.route("https://www.google.com/search?q=first&num=10", http.StatusOK,
		`<div class="g"><a href="https://a.example/1">A1</a></div><div class="g"><a href="https://a.example/2">A2</a></div>`)
	requester.route("https://www.google.com/search?q=third&num=10", http.StatusServiceUnavailable,
		`<div class="g"><a href="https://c.example/1">C1</a></div>`)
	requester.route("https://a.example/1", http.StatusOK, `<p>a1</p>`)
	requester.route("https://a.example/2", http.StatusOK, `<p>a2</p>`)
	requester.route("https://c.example/1", http.StatusOK, `<p>c1</p>`)

	session := newTestSession(t, requester, SessionOptions{})
	result, err := session.Run(models.ScrapeRequest{
		Keywords:        []string{"first", "second", "third"},
		PageCount:       10,
		Engine:          models.EngineGoogle,
		OutputDirectory: t.TempDir(),
		DocumentTitle:   "问题",
	})
	if err != nil {
		t.Fatalf("搜索页失败不应导致会话失败: %v", err)
	}

	var got []string
	for _, rec := range result.Records {
		got = append(got, rec.Keyword+"|"+rec.Title+"|"+rec.BodyText)
	}
	want := []string{"first|A1|a1", "first|A2|a2", "third|C1|c1"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("期望 %v, 实际 %v", want, got)
	}
	if filepath.Base(result.Path) != "问题.txt" {
		t.Errorf("文档名应使用标题: %s", result.Path)
	}
}

func TestSession_FailedPageKeepsRecord(t *testing.T) {
	requester := newRoutingRequester()
	requester.route("https://www.google.com/search?q=kw&num=10", http.StatusOK,
		`<div class="g"><a href="https://ok.example">ok</a></div><div class="g"><a href="https://down.example">down</a></div>`)
	requester.route("https://ok.example", http.StatusOK, `<p>fine</p>`)
	requester.route("https://down.example", http.StatusInternalServerError, `<p>error page</p>`)

	session := newTestSession(t, requester, SessionOptions{})
	result, err := session.Run(models.ScrapeRequest{
		Keywords: []string{"kw"}, PageCount: 10, Engine: models.EngineGoogle, OutputDirectory: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("页面失败不应导致会话失败: %v", err)
	}
	if len(result.Records) != 2 {
		t.Fatalf("期望2条记录, 实际 %d", len(result.Records))
	}
	if result.Records[0].BodyText != "fine" || result.Records[1].BodyText != "" {
		t.Errorf("正文不正确: %q, %q", result.Records[0].BodyText, result.Records[1].BodyText)
	}
	if result.Status != models.SessionCompleted {
		t.Errorf("部分失败的会话仍应为completed, 实际 %s", result.Status)
	}
}

func TestSession_WithLinks(t *testing.T) {
	session := newTestSession(t, googleRoutes(), SessionOptions{WithLinks: true})
	result, err := session.Run(models.ScrapeRequest{
		Keywords: []string{"rust ownership"}, PageCount: 10, Engine: models.EngineGoogle, OutputDirectory: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("会话失败: %v", err)
	}
	links := result.Records[0].OutboundLinks
	if len(links) != 1 || links[0] != "https://x.example" {
		t.Errorf("链接不正确: %v", links)
	}
	data, _ := os.ReadFile(result.Path)
	if !strings.Contains(string(data), "LINKS: https://x.example\n") {
		t.Error("文档缺少LINKS行")
	}
}

func TestSession_CancelledBeforeStart(t *testing.T) {
	requester := googleRoutes()
	session := newTestSession(t, requester, SessionOptions{})
	session.Cancel()

	result, err := session.Run(models.ScrapeRequest{
		Keywords: []string{"rust ownership"}, PageCount: 10, Engine: models.EngineGoogle, OutputDirectory: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("取消的会话不应返回错误: %v", err)
	}
	if result.Status != models.SessionCancelled || session.Status() != models.SessionCancelled {
		t.Errorf("期望状态cancelled, 实际 %s", result.Status)
	}
	if !result.Empty() {
		t.Errorf("期望空结果, 实际 %d 条", len(result.Records))
	}
	if requester.callCount() != 0 {
		t.Errorf("取消后不应发出请求, 实际 %d 次", requester.callCount())
	}
	if _, err := os.Stat(result.Path); err != nil {
		t.Errorf("取消的会话仍应写出文档: %v", err)
	}
}

// cancellingFetcher 第一次抓取时取消会话
type cancellingFetcher struct {
	session *Session
	calls   atomic.Int32
}

func (f *cancellingFetcher) Fetch(token *models.CancelToken, rawURL string) models.FetchOutcome {
	f.calls.Add(1)
	f.session.Cancel()
	outcome := models.EmptyOutcome()
	outcome.Text = "partial " + rawURL
	return outcome
}

func TestSession_CancelDuringFetch(t *testing.T) {
	requester := googleRoutes()
	requester.route("https://www.google.com/search?q=later&num=10", http.StatusOK,
		`<div class="g"><a href="https://later.example">later</a></div>`)

	fetcher := &cancellingFetcher{}
	session := NewSession(requester, testIdentities(t), fetcher, &DocumentWriter{Now: fixedClock}, SessionOptions{})
	fetcher.session = session

	result, err := session.Run(models.ScrapeRequest{
		Keywords: []string{"rust ownership", "later"}, PageCount: 10, Engine: models.EngineGoogle, OutputDirectory: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("会话失败: %v", err)
	}
	if result.Status != models.SessionCancelled {
		t.Errorf("期望状态cancelled, 实际 %s", result.Status)
	}
	if len(result.Records) != 3 {
		t.Fatalf("第一个关键词的记录应保留, 实际 %d 条", len(result.Records))
	}
	for _, rec := range result.Records {
		if rec.Keyword != "rust ownership" {
			t.Errorf("取消后不应处理后续关键词: %s", rec.Keyword)
		}
	}
	if result.Records[0].BodyText != "partial https://a.example/1" {
		t.Errorf("已完成的抓取结果应保留: %q", result.Records[0].BodyText)
	}
	// 只请求了第一个关键词的搜索页
	if requester.callCount() != 1 {
		t.Errorf("期望1次搜索页请求, 实际 %d", requester.callCount())
	}
	data, err := os.ReadFile(result.Path)
	if err != nil {
		t.Fatalf("取消的会话仍应写出文档: %v", err)
	}
	if !strings.Contains(string(data), "NUMBER: 3\n") {
		t.Error("文档应包含已收集的记录")
	}
}

func TestSession_Errors(t *testing.T) {
	t.Run("没有关键词", func(t *testing.T) {
		requester := newRoutingRequester()
		session := newTestSession(t, requester, SessionOptions{})
		_, err := session.Run(models.ScrapeRequest{Keywords: []string{" ", ""}, PageCount: 10, Engine: models.EngineGoogle})
		if !errors.Is(err, models.ErrNoKeywords) {
			t.Errorf("期望ErrNoKeywords, 实际 %v", err)
		}
		if session.Status() != models.SessionIdle {
			t.Errorf("验证失败后状态应保持idle, 实际 %s", session.Status())
		}
		if requester.callCount() != 0 {
			t.Error("验证失败时不应发出请求")
		}
	})

	t.Run("未知搜索引擎", func(t *testing.T) {
		session := newTestSession(t, newRoutingRequester(), SessionOptions{})
		_, err := session.Run(models.ScrapeRequest{Keywords: []string{"kw"}, PageCount: 10, Engine: "altavista"})
		if !errors.Is(err, models.ErrUnknownEngine) {
			t.Errorf("期望ErrUnknownEngine, 实际 %v", err)
		}
	})

	t.Run("重复运行", func(t *testing.T) {
		session := newTestSession(t, newRoutingRequester(), SessionOptions{})
		req := models.ScrapeRequest{Keywords: []string{"kw"}, PageCount: 10, Engine: models.EngineGoogle, OutputDirectory: t.TempDir()}
		if _, err := session.Run(req); err != nil {
			t.Fatalf("第一次运行失败: %v", err)
		}
		if _, err := session.Run(req); !errors.Is(err, models.ErrSessionStarted) {
			t.Errorf("期望ErrSessionStarted, 实际 %v", err)
		}
	})

	t.Run("写文档失败", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		session := newTestSession(t, newRoutingRequester(), SessionOptions{})
		result, err := session.Run(models.ScrapeRequest{Keywords: []string{"kw"}, PageCount: 10, Engine: models.EngineGoogle, OutputDirectory: blocker})
		if err == nil {
			t.Fatal("写文档失败应返回错误")
		}
		if result == nil || !result.Status.Terminal() {
			t.Error("写文档失败时会话仍应进入终止状态")
		}
	})
}

func TestSession_ProgressNonBlocking(t *testing.T) {
	// 无缓冲且无人接收的通道不能阻塞会话
	progress := make(chan models.ProgressEvent)
	session := newTestSession(t, googleRoutes(), SessionOptions{Progress: progress})
	if _, err := session.Run(models.ScrapeRequest{
		Keywords: []string{"rust ownership"}, PageCount: 10, Engine: models.EngineGoogle, OutputDirectory: t.TempDir(),
	}); err != nil {
		t.Fatalf("会话失败: %v", err)
	}
}
