package okr

import "time"

// MaxValue is the largest target or current value storage accepts.
const MaxValue = 99_999_999

// MinHorizonYears is the minimum distance, in years, between goal creation and its due date.
const MinHorizonYears = 5

// Goal is a long-horizon aspiration owned by a user.
type Goal struct {
	ID          int64     `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	DueDate     time.Time `json:"due_date" yaml:"due_date"`
	OwnerID     string    `json:"owner_id" yaml:"owner_id"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Parent locates the objective a key result belongs to inside a candidate.
// Quarter is zero for key results attached directly to a yearly objective.
type Parent struct {
	Year    int `json:"-" yaml:"-"`
	Quarter int `json:"-" yaml:"-"`
}

// IsSet reports whether the parent reference has been assigned.
func (p Parent) IsSet() bool {
	return p.Year != 0
}

// Yearly returns the parent reference of a yearly objective.
func Yearly(year int) Parent {
	return Parent{Year: year}
}

// Quarterly returns the parent reference of a quarterly objective.
func Quarterly(year, quarter int) Parent {
	return Parent{Year: year, Quarter: quarter}
}

// KeyResult is a measurable indicator attached to exactly one objective.
type KeyResult struct {
	ID                   int64     `json:"id,omitempty" yaml:"id,omitempty"`
	YearlyObjectiveID    *int64    `json:"yearly_objective_id,omitempty" yaml:"yearly_objective_id,omitempty"`
	QuarterlyObjectiveID *int64    `json:"quarterly_objective_id,omitempty" yaml:"quarterly_objective_id,omitempty"`
	Parent               Parent    `json:"-" yaml:"-"`
	Description          string    `json:"description" yaml:"description"`
	TargetValue          float64   `json:"target_value" yaml:"target_value"`
	CurrentValue         float64   `json:"current_value" yaml:"current_value"`
	Unit                 string    `json:"unit,omitempty" yaml:"unit,omitempty"`
	Frequency            Frequency `json:"frequency,omitempty" yaml:"frequency,omitempty"`
	AchievementRate      float64   `json:"achievement_rate" yaml:"achievement_rate"`
}

// QuarterlyObjective scopes intent to one quarter of a yearly objective.
type QuarterlyObjective struct {
	ID                int64       `json:"id,omitempty" yaml:"id,omitempty"`
	YearlyObjectiveID int64       `json:"yearly_objective_id,omitempty" yaml:"yearly_objective_id,omitempty"`
	Year              int         `json:"year" yaml:"year"`
	Quarter           int         `json:"quarter" yaml:"quarter"`
	Objective         string      `json:"objective" yaml:"objective"`
	KeyResults        []KeyResult `json:"key_results" yaml:"key_results"`
}

// YearlyObjective scopes intent to one calendar year of a goal.
type YearlyObjective struct {
	ID         int64                `json:"id,omitempty" yaml:"id,omitempty"`
	GoalID     int64                `json:"goal_id,omitempty" yaml:"goal_id,omitempty"`
	Year       int                  `json:"year" yaml:"year"`
	Objective  string               `json:"objective" yaml:"objective"`
	KeyResults []KeyResult          `json:"key_results" yaml:"key_results"`
	Quarterly  []QuarterlyObjective `json:"quarterly_objectives" yaml:"quarterly_objectives"`
}

// Plan is the full objective hierarchy of one goal.
type Plan struct {
	GoalID int64             `json:"goal_id" yaml:"goal_id"`
	Yearly []YearlyObjective `json:"yearly_objectives" yaml:"yearly_objectives"`
}

// Milestone is an oracle-suggested checkpoint. It is surfaced, never persisted.
type Milestone struct {
	Title       string `json:"title" yaml:"title"`
	Year        int    `json:"year,omitempty" yaml:"year,omitempty"`
	Quarter     int    `json:"quarter,omitempty" yaml:"quarter,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Metadata carries oracle-only commentary about a candidate.
type Metadata struct {
	Rationale    string      `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Dependencies []string    `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	RiskFactors  []string    `json:"risk_factors,omitempty" yaml:"risk_factors,omitempty"`
	Milestones   []Milestone `json:"milestones,omitempty" yaml:"milestones,omitempty"`
}

// Candidate is a plan that has not yet been accepted for persistence.
type Candidate struct {
	Yearly   []YearlyObjective `json:"yearly_objectives" yaml:"yearly_objectives"`
	Metadata Metadata          `json:"metadata" yaml:"metadata"`
}

// Plan converts the candidate into a plan for the given goal.
func (c *Candidate) Plan(goalID int64) Plan {
	if c == nil {
		return Plan{GoalID: goalID}
	}
	return Plan{GoalID: goalID, Yearly: c.Yearly}
}

// Years lists the yearly objective years in candidate order.
func (c *Candidate) Years() []int {
	if c == nil {
		return nil
	}
	years := make([]int, 0, len(c.Yearly))
	for _, y := range c.Yearly {
		years = append(years, y.Year)
	}
	return years
}

// HasDuplicateYears reports whether any year appears more than once.
func (c *Candidate) HasDuplicateYears() bool {
	seen := make(map[int]struct{})
	for _, year := range c.Years() {
		if _, ok := seen[year]; ok {
			return true
		}
		seen[year] = struct{}{}
	}
	return false
}

// AssignParents sets every key result's parent from its position in the hierarchy.
func (c *Candidate) AssignParents() {
	if c == nil {
		return
	}
	for yi := range c.Yearly {
		y := &c.Yearly[yi]
		for ki := range y.KeyResults {
			y.KeyResults[ki].Parent = Yearly(y.Year)
		}
		for qi := range y.Quarterly {
			q := &y.Quarterly[qi]
			year := q.Year
			if year == 0 {
				year = y.Year
			}
			for ki := range q.KeyResults {
				q.KeyResults[ki].Parent = Quarterly(year, q.Quarter)
			}
		}
	}
}

// KeyResultCount returns the number of key results across the plan.
func (p Plan) KeyResultCount() int {
	n := 0
	for _, y := range p.Yearly {
		n += len(y.KeyResults)
		for _, q := range y.Quarterly {
			n += len(q.KeyResults)
		}
	}
	return n
}

// FindKeyResult returns the key result with the given id.
func (p Plan) FindKeyResult(id int64) (KeyResult, bool) {
	for _, y := range p.Yearly {
		for _, kr := range y.KeyResults {
			if kr.ID == id {
				return kr, true
			}
		}
		for _, q := range y.Quarterly {
			for _, kr := range q.KeyResults {
				if kr.ID == id {
					return kr, true
				}
			}
		}
	}
	return KeyResult{}, false
}
