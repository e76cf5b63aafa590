package common

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
)

const (
	NSDAV    = "DAV:"
	NSCalDAV = "urn:ietf:params:xml:ns:caldav"
	NSCS     = "http://calendarserver.org/ns/"
)

type MultiStatus struct {
	XMLName   xml.Name   `xml:"D:multistatus"`
	XmlnsD    string     `xml:"xmlns:D,attr"`
	XmlnsC    string     `xml:"xmlns:C,attr"`
	XmlnsCS   string     `xml:"xmlns:CS,attr"`
	Responses []Response `xml:"D:response"`
}

type Response struct {
	Href     string     `xml:"D:href"`
	Propstat []Propstat `xml:"D:propstat,omitempty"`
	Status   string     `xml:"D:status,omitempty"`
}

type Propstat struct {
	Prop   Prop   `xml:"D:prop"`
	Status string `xml:"D:status"`
}

type Prop struct {
	ResourceType        *ResourceType     `xml:"D:resourcetype,omitempty"`
	DisplayName         string            `xml:"D:displayname,omitempty"`
	GetETag             string            `xml:"D:getetag,omitempty"`
	GetContentType      string            `xml:"D:getcontenttype,omitempty"`
	GetLastModified     string            `xml:"D:getlastmodified,omitempty"`
	CalendarDescription string            `xml:"C:calendar-description,omitempty"`
	SupportedComponents *SupportedCompSet `xml:"C:supported-calendar-component-set,omitempty"`
	CalendarTimezone    *CData            `xml:"C:calendar-timezone,omitempty"`
	CalendarData        *CData            `xml:"C:calendar-data,omitempty"`
	GetCTag             string            `xml:"CS:getctag,omitempty"`
}

type ResourceType struct {
	Collection *struct{} `xml:"D:collection,omitempty"`
	Calendar   *struct{} `xml:"C:calendar,omitempty"`
}

type SupportedCompSet struct {
	Comps []Comp `xml:"C:comp"`
}

type Comp struct {
	Name string `xml:"name,attr"`
}

// CData carries iCalendar text verbatim inside an XML element.
type CData struct {
	Text string `xml:",cdata"`
}

func Ok() string       { return "HTTP/1.1 200 OK" }
func NotFound() string { return "HTTP/1.1 404 Not Found" }

func CalendarResourceType() *ResourceType {
	return &ResourceType{Collection: &struct{}{}, Calendar: &struct{}{}}
}

func WriteMultiStatus(w http.ResponseWriter, ms MultiStatus) {
	ms.XmlnsD = NSDAV
	ms.XmlnsC = NSCalDAV
	ms.XmlnsCS = NSCS

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(ms); err != nil {
		http.Error(w, fmt.Sprintf("xml encode error: %v", err), http.StatusInternalServerError)
		return
	}
	_ = enc.Flush()
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	_, _ = w.Write(buf.Bytes())
}
