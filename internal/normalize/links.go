package normalize

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	assignmentLinkPattern = regexp.MustCompile(`#assignmentdetail/(\d+)/(\d+)`)
	classLinkPattern      = regexp.MustCompile(`#academicclass/(\d+)/`)
)

// AssignmentIDFromLink extracts the assignment index id from an assignment detail link.
// It returns nil when the link does not match.
func AssignmentIDFromLink(link string) *int64 {
	return capture(assignmentLinkPattern, link, 2)
}

// ClassIDFromLink extracts the section id from a class page link, or nil.
func ClassIDFromLink(link string) *int64 {
	return capture(classLinkPattern, link, 1)
}

// AssignmentLink builds the host detail link for an assignment.
func AssignmentLink(assignmentID, indexID int64) string {
	return fmt.Sprintf("#assignmentdetail/%d/%d/0/studentmyday--assignmentcenter", assignmentID, indexID)
}

// ClassLink builds the host link for a class section.
func ClassLink(sectionID int64) string {
	return fmt.Sprintf("#academicclass/%d/0/bulletinboard", sectionID)
}

func capture(re *regexp.Regexp, s string, group int) *int64 {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	id, err := strconv.ParseInt(m[group], 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}
