package zoho

// recordRow is the subset of record fields the sync reads. Account_Name is
// the primary label on the modules this runs against; Name covers modules
// where the label field differs.
type recordRow struct {
	ID          string `json:"id"`
	Name        string `json:"Name,omitempty"`
	AccountName string `json:"Account_Name,omitempty"`
}

func (r recordRow) label() string {
	if r.AccountName != "" {
		return r.AccountName
	}
	return r.Name
}

type recordPage struct {
	Data []recordRow `json:"data"`
}

// mutationResponse is the envelope for create/update calls. Each result
// carries its own status code; "SUCCESS" is the only accepted value.
type mutationResponse struct {
	Data []mutationResult `json:"data"`
}

type mutationResult struct {
	Code    string `json:"code"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Details struct {
		ID string `json:"id"`
	} `json:"details"`
}

type notesPage struct {
	Data []noteRow `json:"data"`
}

type noteRow struct {
	ID          string `json:"id"`
	NoteTitle   string `json:"Note_Title"`
	NoteContent string `json:"Note_Content"`
	CreatedTime string `json:"Created_Time"`
}

type modulesResponse struct {
	Modules []moduleMeta `json:"modules"`
}

type moduleMeta struct {
	APIName      string `json:"api_name"`
	PluralLabel  string `json:"plural_label"`
	Creatable    bool   `json:"creatable"`
	APISupported bool   `json:"api_supported"`
}

type fieldsResponse struct {
	Fields []fieldMeta `json:"fields"`
}

type fieldMeta struct {
	APIName  string `json:"api_name"`
	DataType string `json:"data_type"`
}
