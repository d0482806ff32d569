package resume

import "github.com/jonathan/resume-builder/internal/types"

// Seed returns the default document every new editing session starts from.
func Seed() types.Document {
	return types.Document{
		PersonalInfo: types.PersonalInfo{
			Name:           "Jane Doe",
			Email:          "jane.doe@example.com",
			Phone:          "123-456-7890",
			Address:        "San Francisco, CA",
			LinkedIn:       "https://linkedin.com/in/janedoe",
			Website:        "https://janedoe.dev",
			ProfilePicture: "https://picsum.photos/seed/pfp/200/200",
		},
		Summary: "",
		Experience: []types.Experience{
			{
				ID:        "exp1",
				Company:   "Tech Solutions Inc.",
				Role:      "Senior Software Engineer",
				StartDate: "Jan 2020",
				EndDate:   "Present",
				Description: "- Led the development of a new client-facing dashboard using React and TypeScript, improving user engagement by 25%.\n" +
					"- Architected and implemented a scalable microservices backend with Node.js, reducing server response time by 40%.\n" +
					"- Mentored junior engineers, conducting code reviews and promoting best practices.",
			},
			{
				ID:        "exp2",
				Company:   "Innovate LLC",
				Role:      "Software Engineer",
				StartDate: "Jun 2017",
				EndDate:   "Dec 2019",
				Description: "- Contributed to a mobile application for iOS and Android using React Native, which acquired over 100,000 downloads.\n" +
					"- Worked in an Agile team to deliver new features and bug fixes on a bi-weekly sprint cycle.",
			},
		},
		Education: []types.Education{
			{
				ID:          "edu1",
				Institution: "University of California, Berkeley",
				Degree:      "B.S. in Computer Science",
				StartDate:   "Sep 2013",
				EndDate:     "May 2017",
			},
		},
		Skills: []types.Skill{
			{ID: "skill1", Name: "JavaScript"},
			{ID: "skill2", Name: "TypeScript"},
			{ID: "skill3", Name: "React"},
			{ID: "skill4", Name: "Node.js"},
			{ID: "skill5", Name: "SQL"},
			{ID: "skill6", Name: "Cloud Services (AWS, GCP)"},
		},
		Template: types.TemplateStandard,
	}
}
