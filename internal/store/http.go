package store

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// HTTP uploads every file of a directory as a multipart request to a single
// endpoint. The destination passed to UploadDirectory is the form field name
// and each part's filename is the file's path relative to the directory.
type HTTP struct {
	URL     string
	Method  string
	Headers map[string]string
	Client  *http.Client

	logger hclog.Logger
}

func NewHTTP(url, method string, headers map[string]string, logger hclog.Logger) *HTTP {
	if method == "" {
		method = http.MethodPost
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &HTTP{
		URL:     url,
		Method:  strings.ToUpper(method),
		Headers: headers,
		Client:  http.DefaultClient,
		logger:  logger.Named("http-store"),
	}
}

func (h *HTTP) UploadDirectory(ctx context.Context, localDir string, dest string) error {
	files, err := walkFiles(localDir)
	if err != nil {
		return err
	}

	field := dest
	if field == "" {
		field = "file"
	}

	for _, f := range files {
		if err := h.upload(ctx, f, field); err != nil {
			return err
		}
		h.logger.Debug("uploaded file", "file", f.rel, "bytes", f.size)
	}
	return nil
}

func (h *HTTP) upload(ctx context.Context, f localFile, field string) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.rel, err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.rel))
		header.Set("Content-Type", contentType(f.rel))

		part, err := mw.CreatePart(header)
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, h.Method, h.URL, pr)
	if err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := h.Client.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("upload %s: %w", f.rel, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload %s: unexpected status %s", f.rel, resp.Status)
	}
	return nil
}

// Download fetches src with a GET request and writes the body to dst.
func (h *HTTP) Download(ctx context.Context, src string, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download %s: unexpected status %s", src, resp.Status)
	}

	return writeFile(dst, resp.Body)
}

// FilenameFromURL returns the last path element of a URL, if any.
func FilenameFromURL(raw string) string {
	raw, _, _ = strings.Cut(raw, "?")
	raw, _, _ = strings.Cut(raw, "#")
	base := path.Base(raw)
	if base == "." || base == "/" || strings.Contains(base, ":") {
		return ""
	}
	return base
}

func writeFile(dst string, r io.Reader) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return out.Close()
}
