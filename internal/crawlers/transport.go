package crawlers

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	utls "github.com/refraction-networking/utls"
)

// newTransport 构造请求器使用的RoundTripper
func newTransport(cfg RequesterConfig) http.RoundTripper {
	base := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify},
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 5,
	}
	if cfg.TLSFingerprint {
		base.DialTLSContext = chromeTLSDialer(cfg.InsecureSkipVerify)
		base.ForceAttemptHTTP2 = false
	}
	return &decodingTransport{next: base}
}

// chromeTLSDialer 使用Chrome的ClientHello建立TLS连接
//
// ALPN固定为http/1.1,http.Transport无法在utls连接上使用HTTP/2。
func chromeTLSDialer(insecure bool) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		dialer := &net.Dialer{Timeout: 10 * time.Second}
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, _ := net.SplitHostPort(addr)
		config := &utls.Config{ServerName: host, InsecureSkipVerify: insecure}

		var tlsConn *utls.UConn
		if spec, err := chromeHTTP1Spec(); err == nil {
			tlsConn = utls.UClient(conn, config, utls.HelloCustom)
			if err := tlsConn.ApplyPreset(&spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("应用TLS指纹失败: %w", err)
			}
		} else {
			tlsConn = utls.UClient(conn, config, utls.HelloRandomizedNoALPN)
		}

		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return tlsConn, nil
	}
}

// chromeHTTP1Spec 每个连接生成一份新的ClientHello描述,扩展对象不能跨连接复用
func chromeHTTP1Spec() (utls.ClientHelloSpec, error) {
	spec, err := utls.UTLSIdToSpec(utls.HelloChrome_Auto)
	if err != nil {
		return spec, err
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			break
		}
	}
	return spec, nil
}

// decodingTransport 解压gzip/deflate/br响应体
//
// 请求头中显式声明了Accept-Encoding时http.Transport不会自动解压,
// 在这里统一处理,Colly的字符集检测看到的就是解压后的内容。
type decodingTransport struct {
	next http.RoundTripper
}

func (t *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	reader, err := decodeReader(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	if reader == nil {
		return resp, nil
	}

	resp.Body = &decodedBody{Reader: reader, raw: resp.Body}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

// decodeReader 根据Content-Encoding返回解压读取器,无需解压时返回nil
func decodeReader(contentEncoding string, body io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "br":
		return brotli.NewReader(body), nil
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(body)
		if errors.Is(err, io.EOF) {
			// 空响应体 (如部分403响应)
			return strings.NewReader(""), nil
		}
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		return gz, nil
	case "deflate":
		return flate.NewReader(body), nil
	default:
		return nil, nil
	}
}

type decodedBody struct {
	io.Reader
	raw io.Closer
}

func (b *decodedBody) Close() error {
	if c, ok := b.Reader.(io.Closer); ok {
		c.Close()
	}
	return b.raw.Close()
}
