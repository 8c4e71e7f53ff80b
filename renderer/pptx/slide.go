package pptx

import (
	"fmt"
	"math"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/ByLCY/posterkit/layout"
	"github.com/ByLCY/posterkit/slide"
)

// mediaPart 是一个已读取的图片，index 从 1 开始，与 slide1.xml.rels 中的 rId(index+1) 对应。
type mediaPart struct {
	index       int
	ext         string
	contentType string
	data        []byte
}

func (m mediaPart) partName() string {
	return fmt.Sprintf("ppt/media/image%d.%s", m.index, m.ext)
}

func (m mediaPart) relID() string {
	// rId1 固定指向版式
	return fmt.Sprintf("rId%d", m.index+1)
}

func (w *Writer) writeSlide(zw *zip.Writer, doc *slide.Document, media []mediaPart) error {
	var shapesXML strings.Builder
	shapeID := 2 // 1 is reserved for the group shape
	mediaIdx := 0

	for _, shape := range doc.Shapes {
		switch shape.Kind {
		case slide.ShapeMedia:
			shapesXML.WriteString(pictureXML(shape, shapeID, media[mediaIdx]))
			mediaIdx++
		default:
			shapesXML.WriteString(textBoxXML(shape, shapeID))
		}
		shapeID++
	}

	content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">
  <p:cSld>
    <p:spTree>
%s%s    </p:spTree>
  </p:cSld>
  <p:clrMapOvr>
    <a:masterClrMapping/>
  </p:clrMapOvr>
</p:sld>`, nsDrawingML, nsOfficeDocRels, nsPresentationML, groupShapeXML, shapesXML.String())
	if err := writeRawXMLToZip(zw, "ppt/slides/slide1.xml", content); err != nil {
		return err
	}

	rels := relationships(xmlRelationship{ID: "rId1", Type: relTypeSlideLayout, Target: "../slideLayouts/slideLayout1.xml"})
	for _, m := range media {
		rels.Relationships = append(rels.Relationships, xmlRelationship{
			ID:     m.relID(),
			Type:   relTypeImage,
			Target: fmt.Sprintf("../media/image%d.%s", m.index, m.ext),
		})
	}
	return writeXMLToZip(zw, "ppt/slides/_rels/slide1.xml.rels", rels)
}

type emuFrame struct {
	x, y, cx, cy int64
}

func toEMU(f slide.Frame) emuFrame {
	return emuFrame{
		x:  layout.Inch(f.X),
		y:  layout.Inch(f.Y),
		cx: max(layout.Inch(f.W), 0),
		cy: max(layout.Inch(f.H), 0),
	}
}

func pictureXML(shape slide.Shape, id int, media mediaPart) string {
	f := toEMU(shape.Frame)
	name := shape.Name
	if name == "" {
		name = fmt.Sprintf("Picture %d", id)
	}
	return fmt.Sprintf(`      <p:pic>
        <p:nvPicPr>
          <p:cNvPr id="%d" name="%s"/>
          <p:cNvPicPr>
            <a:picLocks noChangeAspect="1"/>
          </p:cNvPicPr>
          <p:nvPr/>
        </p:nvPicPr>
        <p:blipFill>
          <a:blip r:embed="%s"/>
          <a:stretch>
            <a:fillRect/>
          </a:stretch>
        </p:blipFill>
        <p:spPr>
          <a:xfrm>
            <a:off x="%d" y="%d"/>
            <a:ext cx="%d" cy="%d"/>
          </a:xfrm>
          <a:prstGeom prst="rect">
            <a:avLst/>
          </a:prstGeom>
        </p:spPr>
      </p:pic>
`, id, xmlEscape(name), media.relID(), f.x, f.y, f.cx, f.cy)
}

func textBoxXML(shape slide.Shape, id int) string {
	f := toEMU(shape.Frame)
	name := shape.Name
	if name == "" {
		name = fmt.Sprintf("TextBox %d", id)
	}
	props := shape.Props
	if props == nil {
		props = &slide.TextProps{Color: "#000000", Fill: slide.Fill{Transparency: 100}, FontSizePt: 16, Align: "left"}
	}

	var paragraphs strings.Builder
	for _, line := range splitLines(shape.Text) {
		paragraphs.WriteString(paragraphXML(line, props))
	}

	return fmt.Sprintf(`      <p:sp>
        <p:nvSpPr>
          <p:cNvPr id="%d" name="%s"/>
          <p:cNvSpPr txBox="1"/>
          <p:nvPr/>
        </p:nvSpPr>
        <p:spPr>
          <a:xfrm>
            <a:off x="%d" y="%d"/>
            <a:ext cx="%d" cy="%d"/>
          </a:xfrm>
          <a:prstGeom prst="rect">
            <a:avLst/>
          </a:prstGeom>
%s          <a:ln>
            <a:noFill/>
          </a:ln>
        </p:spPr>
        <p:txBody>
          <a:bodyPr wrap="square" lIns="0" tIns="0" rIns="0" bIns="0" rtlCol="0" anchor="t">
            <a:noAutofit/>
          </a:bodyPr>
          <a:lstStyle/>
%s        </p:txBody>
      </p:sp>
`, id, xmlEscape(name), f.x, f.y, f.cx, f.cy, fillXML(props.Fill), paragraphs.String())
}

// fillXML 写出背景填充；完全透明时输出 noFill。
func fillXML(fill slide.Fill) string {
	if fill.Transparency >= 100 {
		return "          <a:noFill/>\n"
	}
	alpha := ""
	if fill.Transparency > 0 {
		alpha = fmt.Sprintf(`<a:alpha val="%d"/>`, (100-fill.Transparency)*1000)
	}
	return fmt.Sprintf("          <a:solidFill><a:srgbClr val=\"%s\">%s</a:srgbClr></a:solidFill>\n",
		layout.HexDigits(fill.Color), alpha)
}

func paragraphXML(text string, props *slide.TextProps) string {
	rPr := runPropsAttrs(props)
	color := layout.HexDigits(props.Color)
	if text == "" {
		return fmt.Sprintf(`          <a:p>
            <a:pPr algn="%s"/>
            <a:endParaRPr%s/>
          </a:p>
`, alignAttr(props.Align), rPr)
	}
	return fmt.Sprintf(`          <a:p>
            <a:pPr algn="%s"/>
            <a:r>
              <a:rPr%s>
                <a:solidFill><a:srgbClr val="%s"/></a:solidFill>
              </a:rPr>
              <a:t>%s</a:t>
            </a:r>
          </a:p>
`, alignAttr(props.Align), rPr, color, xmlEscape(text))
}

func runPropsAttrs(props *slide.TextProps) string {
	attrs := fmt.Sprintf(` lang="en-US" sz="%d" dirty="0"`, fontSizeHundredths(props.FontSizePt))
	if props.Bold {
		attrs += ` b="1"`
	}
	if props.Italic {
		attrs += ` i="1"`
	}
	if props.Underline {
		attrs += ` u="sng"`
	}
	return attrs
}

// fontSizeHundredths 以 1/100 磅表示字号，限制在 DrawingML 允许的 1..4000 磅。
func fontSizeHundredths(pt float64) int {
	v := int(math.Round(pt * 100))
	return min(max(v, 100), 400000)
}

func alignAttr(align string) string {
	switch align {
	case "center":
		return "ctr"
	case "right":
		return "r"
	case "justify":
		return "just"
	default:
		return "l"
	}
}

// splitLines 按 \n、\r\n 或单独的 \r 分行。
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}
