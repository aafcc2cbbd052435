package hostapi

const sessionCookie = "t"

// Host API routes.
const (
	pathContext          = "/api/webapp/context"
	pathAssignmentCenter = "/api/assignment2/StudentAssignmentCenterGet?displayByDueDate=true"
	pathAssignmentDetail = "/api/assignment2/UserAssignmentDetailsGetAllStudentData?assignmentIndexId=%d&studentUserId=%d&personaId=2"
	pathAssignmentStatus = "/api/assignment2/assignmentStatusUpdate"
	pathTask             = "/api/UserTask/Edit/"
	pathTaskByID         = "/api/UserTask/Edit/%d"
	pathTaskStatus       = "/api/UserTask/SetStatus/"
	pathSectionColors    = "/api/mycourses/SectionColorsGet"
	pathClasses          = "/api/datadirect/ParentStudentUserClassesGet?userId=%d&schoolYearLabel=&memberLevel=3&persona=2"
)

type assignmentStatusBody struct {
	AssignmentIndexID int64 `json:"assignmentIndexId"`
	AssignmentStatus  int   `json:"assignmentStatus"`
}

type sectionColor struct {
	SectionID int64  `json:"SectionId"`
	Color     string `json:"Color"`
}

type studentClass struct {
	SectionID         int64  `json:"sectionid"`
	SectionIdentifier string `json:"sectionidentifier"`
}

type sessionContext struct {
	UserInfo struct {
		UserID int64 `json:"UserId"`
	} `json:"UserInfo"`
}
