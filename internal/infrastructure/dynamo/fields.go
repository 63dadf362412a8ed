package dynamo

// DynamoDB attribute and index names shared across repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	attrUserID       = "user_id"
	attrEmail        = "email"
	attrTaskID       = "task_id"
	attrDepartmentID = "department_id"
	attrAssignedTo   = "assigned_to"
	attrAttachmentID = "attachment_id"
	attrCreatedAt    = "created_at"
	attrUpdatedAt    = "updated_at"
	attrStatus       = "status"
	attrPriority     = "priority"
	attrRole         = "role"
	attrName         = "name"

	indexDepartment = "department_id-index"
	indexAssignee   = "assigned_to-index"
	indexTask       = "task_id-index"
)
