package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/jupiterclapton/socialfeed/pkg/api"
)

// Image est un fichier joint à un post.
type Image struct {
	Name        string
	ContentType string
	Size        int64 // -1 si inconnue : le contenu est alors lu en mémoire
	Body        io.Reader
}

type Draft struct {
	Content string
	Song    string
	Image   *Image
}

// ProgressFunc reçoit les octets envoyés et le total du corps de requête.
type ProgressFunc func(sent, total int64)

// CreatePost envoie le brouillon en multipart. progress peut être nil.
func (c *Client) CreatePost(ctx context.Context, creds Credentials, d Draft, progress ProgressFunc) (*api.Post, error) {
	if !creds.Valid() {
		return nil, ErrNoCredentials
	}

	body, contentType, total, err := buildMultipart(d)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		body = &progressReader{r: body, total: total, fn: progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/posts"), body)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", contentType)

	var out api.Post
	if err := c.do(req, creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// buildMultipart prépare le corps sans recopier l'image : en-tête et champs
// texte en mémoire, puis le flux de l'image, puis la boundary finale.
func buildMultipart(d Draft) (io.Reader, string, int64, error) {
	var head bytes.Buffer
	mw := multipart.NewWriter(&head)

	if err := mw.WriteField("content", d.Content); err != nil {
		return nil, "", 0, err
	}
	if d.Song != "" {
		if err := mw.WriteField("song", d.Song); err != nil {
			return nil, "", 0, err
		}
	}

	if d.Image == nil {
		if err := mw.Close(); err != nil {
			return nil, "", 0, err
		}
		return &head, mw.FormDataContentType(), int64(head.Len()), nil
	}

	img := *d.Image
	if img.Size < 0 {
		data, err := io.ReadAll(img.Body)
		if err != nil {
			return nil, "", 0, fmt.Errorf("client: read image: %w", err)
		}
		img.Body, img.Size = bytes.NewReader(data), int64(len(data))
	}
	ct := img.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, escapeQuotes(filepath.Base(img.Name))))
	h.Set("Content-Type", ct)
	if _, err := mw.CreatePart(h); err != nil {
		return nil, "", 0, err
	}

	tail := "\r\n--" + mw.Boundary() + "--\r\n"
	total := int64(head.Len()) + img.Size + int64(len(tail))
	body := io.MultiReader(&head, io.LimitReader(img.Body, img.Size), strings.NewReader(tail))
	return body, mw.FormDataContentType(), total, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(p.sent, p.total)
	}
	return n, err
}

// Percent convertit une progression en pourcentage entier 0..100.
func Percent(sent, total int64) int {
	if total <= 0 {
		return 0
	}
	pct := int(sent * 100 / total)
	return min(max(pct, 0), 100)
}
