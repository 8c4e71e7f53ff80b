package pptx

import (
	"fmt"
	"time"

	"github.com/klauspost/compress/zip"
)

// PowerPoint 接受的幻灯片边长范围（EMU）：1 英寸到 56 英寸。
const (
	minSlideEMU = 914400
	maxSlideEMU = 51206400
)

const groupShapeXML = `      <p:nvGrpSpPr>
        <p:cNvPr id="1" name=""/>
        <p:cNvGrpSpPr/>
        <p:nvPr/>
      </p:nvGrpSpPr>
      <p:grpSpPr>
        <a:xfrm>
          <a:off x="0" y="0"/>
          <a:ext cx="0" cy="0"/>
          <a:chOff x="0" y="0"/>
          <a:chExt cx="0" cy="0"/>
        </a:xfrm>
      </p:grpSpPr>
`

func (w *Writer) writeContentTypes(zw *zip.Writer, media []mediaPart) error {
	ct := xmlContentTypes{
		Xmlns: nsContentTypes,
		Defaults: []xmlDefault{
			{Extension: "rels", ContentType: ctRels},
			{Extension: "xml", ContentType: "application/xml"},
		},
		Overrides: []xmlOverride{
			{PartName: "/ppt/presentation.xml", ContentType: ctPresentation},
			{PartName: "/ppt/presProps.xml", ContentType: ctPresProps},
			{PartName: "/ppt/viewProps.xml", ContentType: ctViewProps},
			{PartName: "/ppt/tableStyles.xml", ContentType: ctTableStyles},
			{PartName: "/ppt/slideMasters/slideMaster1.xml", ContentType: ctSlideMaster},
			{PartName: "/ppt/slideLayouts/slideLayout1.xml", ContentType: ctSlideLayout},
			{PartName: "/ppt/theme/theme1.xml", ContentType: ctTheme},
			{PartName: "/ppt/slides/slide1.xml", ContentType: ctSlide},
			{PartName: "/docProps/core.xml", ContentType: ctCoreProps},
			{PartName: "/docProps/app.xml", ContentType: ctExtProps},
		},
	}

	seen := map[string]bool{}
	for _, m := range media {
		if seen[m.ext] {
			continue
		}
		seen[m.ext] = true
		ct.Defaults = append(ct.Defaults, xmlDefault{Extension: m.ext, ContentType: m.contentType})
	}
	return writeXMLToZip(zw, "[Content_Types].xml", ct)
}

func (w *Writer) writeRootRels(zw *zip.Writer) error {
	return writeXMLToZip(zw, "_rels/.rels", relationships(
		xmlRelationship{ID: "rId1", Type: relTypeOfficeDoc, Target: "ppt/presentation.xml"},
		xmlRelationship{ID: "rId2", Type: relTypeCoreProps, Target: "docProps/core.xml"},
		xmlRelationship{ID: "rId3", Type: relTypeExtProps, Target: "docProps/app.xml"},
	))
}

func (w *Writer) writeAppProperties(zw *zip.Writer) error {
	content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Properties xmlns="%s" xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">
  <Application>%s</Application>
  <Slides>1</Slides>
</Properties>`, nsExtProperties, xmlEscape(w.application))
	return writeRawXMLToZip(zw, "docProps/app.xml", content)
}

func (w *Writer) writeCoreProperties(zw *zip.Writer, title, author string) error {
	now := w.now().UTC().Format(time.RFC3339)
	content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="%s" xmlns:dc="%s" xmlns:dcterms="%s" xmlns:xsi="%s">
  <dc:title>%s</dc:title>
  <dc:creator>%s</dc:creator>
  <cp:lastModifiedBy>%s</cp:lastModifiedBy>
  <cp:revision>1</cp:revision>
  <dcterms:created xsi:type="dcterms:W3CDTF">%s</dcterms:created>
  <dcterms:modified xsi:type="dcterms:W3CDTF">%s</dcterms:modified>
</cp:coreProperties>`,
		nsCoreProperties, nsDC, nsDCTerms, nsXSI,
		xmlEscape(title), xmlEscape(author), xmlEscape(author), now, now)
	return writeRawXMLToZip(zw, "docProps/core.xml", content)
}

func (w *Writer) writePresentation(zw *zip.Writer, cx, cy int64) error {
	content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentation xmlns:a="%s" xmlns:r="%s" xmlns:p="%s" saveSubsetFonts="1">
  <p:sldMasterIdLst>
    <p:sldMasterId id="2147483648" r:id="rId1"/>
  </p:sldMasterIdLst>
  <p:sldIdLst>
    <p:sldId id="256" r:id="rId2"/>
  </p:sldIdLst>
  <p:sldSz cx="%d" cy="%d"/>
  <p:notesSz cx="6858000" cy="9144000"/>
</p:presentation>`, nsDrawingML, nsOfficeDocRels, nsPresentationML, cx, cy)
	if err := writeRawXMLToZip(zw, "ppt/presentation.xml", content); err != nil {
		return err
	}
	return writeXMLToZip(zw, "ppt/_rels/presentation.xml.rels", relationships(
		xmlRelationship{ID: "rId1", Type: relTypeSlideMaster, Target: "slideMasters/slideMaster1.xml"},
		xmlRelationship{ID: "rId2", Type: relTypeSlide, Target: "slides/slide1.xml"},
		xmlRelationship{ID: "rId3", Type: relTypeTheme, Target: "theme/theme1.xml"},
		xmlRelationship{ID: "rId4", Type: relTypePresProps, Target: "presProps.xml"},
		xmlRelationship{ID: "rId5", Type: relTypeViewProps, Target: "viewProps.xml"},
		xmlRelationship{ID: "rId6", Type: relTypeTableStyles, Target: "tableStyles.xml"},
	))
}

func (w *Writer) writePresentationProps(zw *zip.Writer) error {
	presProps := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:presentationPr xmlns:a="%s" xmlns:r="%s" xmlns:p="%s"/>`, nsDrawingML, nsOfficeDocRels, nsPresentationML)
	if err := writeRawXMLToZip(zw, "ppt/presProps.xml", presProps); err != nil {
		return err
	}
	viewProps := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:viewPr xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">
  <p:gridSpacing cx="76200" cy="76200"/>
</p:viewPr>`, nsDrawingML, nsOfficeDocRels, nsPresentationML)
	if err := writeRawXMLToZip(zw, "ppt/viewProps.xml", viewProps); err != nil {
		return err
	}
	tableStyles := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<a:tblStyleLst xmlns:a="%s" def="{5C22544A-7EE6-4342-B048-85BDC9FD1C3A}"/>`, nsDrawingML)
	return writeRawXMLToZip(zw, "ppt/tableStyles.xml", tableStyles)
}

func (w *Writer) writeSlideMaster(zw *zip.Writer) error {
	content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldMaster xmlns:a="%s" xmlns:r="%s" xmlns:p="%s">
  <p:cSld>
    <p:bg>
      <p:bgRef idx="1001">
        <a:schemeClr val="bg1"/>
      </p:bgRef>
    </p:bg>
    <p:spTree>
%s    </p:spTree>
  </p:cSld>
  <p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>
  <p:sldLayoutIdLst>
    <p:sldLayoutId id="2147483649" r:id="rId1"/>
  </p:sldLayoutIdLst>
  <p:txStyles>
    <p:titleStyle/>
    <p:bodyStyle/>
    <p:otherStyle/>
  </p:txStyles>
</p:sldMaster>`, nsDrawingML, nsOfficeDocRels, nsPresentationML, groupShapeXML)
	if err := writeRawXMLToZip(zw, "ppt/slideMasters/slideMaster1.xml", content); err != nil {
		return err
	}
	return writeXMLToZip(zw, "ppt/slideMasters/_rels/slideMaster1.xml.rels", relationships(
		xmlRelationship{ID: "rId1", Type: relTypeSlideLayout, Target: "../slideLayouts/slideLayout1.xml"},
		xmlRelationship{ID: "rId2", Type: relTypeTheme, Target: "../theme/theme1.xml"},
	))
}

func (w *Writer) writeSlideLayout(zw *zip.Writer) error {
	content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sldLayout xmlns:a="%s" xmlns:r="%s" xmlns:p="%s" type="blank" preserve="1">
  <p:cSld name="Blank">
    <p:spTree>
%s    </p:spTree>
  </p:cSld>
  <p:clrMapOvr>
    <a:masterClrMapping/>
  </p:clrMapOvr>
</p:sldLayout>`, nsDrawingML, nsOfficeDocRels, nsPresentationML, groupShapeXML)
	if err := writeRawXMLToZip(zw, "ppt/slideLayouts/slideLayout1.xml", content); err != nil {
		return err
	}
	return writeXMLToZip(zw, "ppt/slideLayouts/_rels/slideLayout1.xml.rels", relationships(
		xmlRelationship{ID: "rId1", Type: relTypeSlideMaster, Target: "../slideMasters/slideMaster1.xml"},
	))
}

func (w *Writer) writeTheme(zw *zip.Writer) error {
	content := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<a:theme xmlns:a="%s" name="Office Theme">
  <a:themeElements>
    <a:clrScheme name="Office">
      <a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1>
      <a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>
      <a:dk2><a:srgbClr val="44546A"/></a:dk2>
      <a:lt2><a:srgbClr val="E7E6E6"/></a:lt2>
      <a:accent1><a:srgbClr val="4472C4"/></a:accent1>
      <a:accent2><a:srgbClr val="ED7D31"/></a:accent2>
      <a:accent3><a:srgbClr val="A5A5A5"/></a:accent3>
      <a:accent4><a:srgbClr val="FFC000"/></a:accent4>
      <a:accent5><a:srgbClr val="5B9BD5"/></a:accent5>
      <a:accent6><a:srgbClr val="70AD47"/></a:accent6>
      <a:hlink><a:srgbClr val="0563C1"/></a:hlink>
      <a:folHlink><a:srgbClr val="954F72"/></a:folHlink>
    </a:clrScheme>
    <a:fontScheme name="Office">
      <a:majorFont><a:latin typeface="Calibri Light"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>
      <a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>
    </a:fontScheme>
    <a:fmtScheme name="Office">
      <a:fillStyleLst>
        <a:solidFill><a:schemeClr val="phClr"/></a:solidFill>
        <a:solidFill><a:schemeClr val="phClr"/></a:solidFill>
        <a:solidFill><a:schemeClr val="phClr"/></a:solidFill>
      </a:fillStyleLst>
      <a:lnStyleLst>
        <a:ln w="6350"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>
        <a:ln w="12700"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>
        <a:ln w="19050"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>
      </a:lnStyleLst>
      <a:effectStyleLst>
        <a:effectStyle><a:effectLst/></a:effectStyle>
        <a:effectStyle><a:effectLst/></a:effectStyle>
        <a:effectStyle><a:effectLst/></a:effectStyle>
      </a:effectStyleLst>
      <a:bgFillStyleLst>
        <a:solidFill><a:schemeClr val="phClr"/></a:solidFill>
        <a:solidFill><a:schemeClr val="phClr"/></a:solidFill>
        <a:solidFill><a:schemeClr val="phClr"/></a:solidFill>
      </a:bgFillStyleLst>
    </a:fmtScheme>
  </a:themeElements>
  <a:objectDefaults/>
  <a:extraClrSchemeLst/>
</a:theme>`, nsDrawingML)
	return writeRawXMLToZip(zw, "ppt/theme/theme1.xml", content)
}

func clampSlideEMU(v int64) int64 {
	return min(max(v, minSlideEMU), maxSlideEMU)
}
