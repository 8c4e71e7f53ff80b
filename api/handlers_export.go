// handlers_export.go - PNG / PPTX 导出
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ByLCY/posterkit/binding"
	"github.com/ByLCY/posterkit/export"
)

const (
	HeaderRequestID   = "X-Request-ID"
	HeaderDiagnostics = "X-Poster-Diagnostics"
)

// ExportRequest 是导出接口的请求体。
type ExportRequest struct {
	Source   string            `json:"source"`
	Data     any               `json:"data,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
	Texts    map[string]string `json:"texts,omitempty"`
	Logo     string            `json:"logo,omitempty"`
	Template string            `json:"template,omitempty"`
	Brand    string            `json:"brand,omitempty"`
	Brief    string            `json:"brief,omitempty"`
	Author   string            `json:"author,omitempty"`
}

func (r ExportRequest) toSource() export.Source {
	return export.Source{
		DSL:    r.Source,
		Data:   r.Data,
		Params: r.Params,
		Texts:  r.Texts,
		Logo:   r.Logo,
		Info: export.Info{
			Template: r.Template,
			Brand:    r.Brand,
			Brief:    r.Brief,
			Author:   r.Author,
		},
	}
}

// ComponentsResponse 列出海报中可替换的组件。
type ComponentsResponse struct {
	Components  []Component `json:"components"`
	Prompt      string      `json:"prompt"`
	Diagnostics []string    `json:"diagnostics,omitempty"`
}

type Component struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Role   string `json:"role,omitempty"`
	Prompt string `json:"prompt,omitempty"`
}

type ExportHandler struct {
	preparer *export.Preparer
	exporter *export.Exporter
}

func NewExportHandler(preparer *export.Preparer, exporter *export.Exporter) *ExportHandler {
	if preparer == nil {
		preparer = &export.Preparer{}
	}
	return &ExportHandler{preparer: preparer, exporter: exporter}
}

// HandleExportPNG 返回栅格化后的 PNG 附件。
func (h *ExportHandler) HandleExportPNG(c echo.Context) error {
	return h.handle(c, h.exporter.ExportPNG)
}

// HandleExportPPTX 返回单页演示文稿附件。
func (h *ExportHandler) HandleExportPPTX(c echo.Context) error {
	return h.handle(c, h.exporter.ExportPPTX)
}

// HandleComponents 构建快照但不导出，返回节点列表与组件提示。
func (h *ExportHandler) HandleComponents(c echo.Context) error {
	body, err := bindExportRequest(c)
	if err != nil {
		return err
	}
	req, err := h.preparer.Prepare(c.Request().Context(), body.toSource())
	if err != nil {
		return prepareError(err)
	}
	poster := req.Poster()
	resp := ComponentsResponse{
		Components:  make([]Component, 0, len(poster.Children)),
		Prompt:      binding.ComponentsPrompt(poster),
		Diagnostics: poster.Diagnostics,
	}
	for _, node := range poster.Children {
		resp.Components = append(resp.Components, Component{
			Name:   node.Name,
			Kind:   node.Kind.String(),
			Role:   node.Role,
			Prompt: node.Prompt,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

type exportFunc func(ctx context.Context, req export.Request) (*export.Artifact, error)

func (h *ExportHandler) handle(c echo.Context, fn exportFunc) error {
	if h.exporter == nil {
		return NewInternalError("导出服务未配置", nil)
	}
	body, err := bindExportRequest(c)
	if err != nil {
		return err
	}
	req, err := h.preparer.Prepare(c.Request().Context(), body.toSource())
	if err != nil {
		return prepareError(err)
	}

	art, err := fn(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, export.ErrSnapshot) || errors.Is(err, export.ErrSerialize) {
			return NewExportError(err)
		}
		return NewInternalError("导出失败", err)
	}

	header := c.Response().Header()
	header.Set(HeaderRequestID, req.ID)
	header.Set(HeaderDiagnostics, strconv.Itoa(len(req.Poster().Diagnostics)))
	header.Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", art.Filename))
	return c.Blob(http.StatusOK, art.ContentType, art.Data)
}

func bindExportRequest(c echo.Context) (ExportRequest, error) {
	var body ExportRequest
	if err := c.Bind(&body); err != nil {
		return body, NewBadRequestError("请求体格式错误", err)
	}
	if strings.TrimSpace(body.Source) == "" {
		return body, NewValidationError("source")
	}
	return body, nil
}

func prepareError(err error) error {
	if errors.Is(err, export.ErrInvalidSource) {
		return NewBadRequestError("海报描述无效", err)
	}
	return NewInternalError("构建海报失败", err)
}
