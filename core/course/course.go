package course

type Level string

const (
	Beginner     Level = "Beginner"
	Intermediate Level = "Intermediate"
	Advanced     Level = "Advanced"
)

// Course is the read-mostly catalog entry served by the backend.
type Course struct {
	ID            string     `json:"_id" validate:"required"`
	Title         string     `json:"courseTitle" validate:"required"`
	Subtitle      string     `json:"subtitle,omitempty"`
	Description   string     `json:"description,omitempty"`
	Thumbnail     string     `json:"thumbnail,omitempty"`
	Price         int        `json:"price" validate:"gte=0"`
	OriginalPrice *int       `json:"originalPrice,omitempty"`
	InstructorID  string     `json:"instructorId,omitempty"`
	Instructor    Instructor `json:"instructor"`
	Duration      string     `json:"duration,omitempty"`
	Level         Level      `json:"level,omitempty"`
	Category      string     `json:"category,omitempty"`
	Language      string     `json:"language,omitempty"`
	IsBestseller  bool       `json:"isBestseller,omitempty"`
	IsNew         bool       `json:"isNew,omitempty"`
	Content       []Section  `json:"courseContent,omitempty"`
}

type Instructor struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

type Section struct {
	ID       string    `json:"_id"`
	Title    string    `json:"sectionTitle"`
	Lectures []Lecture `json:"lectures"`
}

type Lecture struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"videoDescription,omitempty"`
	VideoURL    string `json:"videoUrl"`
	PublicID    string `json:"publicId,omitempty"`
	FreePreview bool   `json:"freePreview"`
	Duration    string `json:"duration,omitempty"`
}

// TotalLectures counts the lectures over all sections. It is zero when
// the course content has not been loaded.
func (c Course) TotalLectures() int {
	var n int
	for _, s := range c.Content {
		n += len(s.Lectures)
	}
	return n
}

// Lectures returns the lectures in section order.
func (c Course) Lectures() []Lecture {
	ls := make([]Lecture, 0, c.TotalLectures())
	for _, s := range c.Content {
		ls = append(ls, s.Lectures...)
	}
	return ls
}

func (c Course) HasLecture(id string) bool {
	_, ok := c.Lecture(id)
	return ok
}

func (c Course) Lecture(id string) (Lecture, bool) {
	for _, s := range c.Content {
		for _, l := range s.Lectures {
			if l.ID == id {
				return l, true
			}
		}
	}
	return Lecture{}, false
}

// First returns the first lecture of the first non-empty section.
func (c Course) First() (Lecture, bool) {
	for _, s := range c.Content {
		if len(s.Lectures) > 0 {
			return s.Lectures[0], true
		}
	}
	return Lecture{}, false
}

// Next returns the lecture following id, crossing section boundaries.
func (c Course) Next(id string) (Lecture, bool) {
	ls := c.Lectures()
	for i, l := range ls {
		if l.ID == id && i+1 < len(ls) {
			return ls[i+1], true
		}
	}
	return Lecture{}, false
}

// Previous returns the lecture preceding id, crossing section boundaries.
func (c Course) Previous(id string) (Lecture, bool) {
	ls := c.Lectures()
	for i, l := range ls {
		if l.ID == id && i > 0 {
			return ls[i-1], true
		}
	}
	return Lecture{}, false
}

// Discounted applies a whole-percent discount to price, rounding the
// discount down.
func Discounted(price int, percent int) int {
	if percent <= 0 {
		return price
	}
	if percent >= 100 {
		return 0
	}
	return price - price*percent/100
}
