package model

type Project struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Ctime int64  `json:"ctime"`
}

type Persona struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt"`
	Ctime        int64  `json:"ctime"`
}
