package cli

import "trivia-room-service/internal/domain"

// builtinBanks provides the fallback question content used when Postgres is
// not configured; swap in a database-backed loader for real deployments.
func builtinBanks() map[string]domain.QuestionBank {
	return map[string]domain.QuestionBank{
		"default": {
			ID: "default",
			Questions: []domain.Question{
				{
					ID:           "1",
					Text:         "Which planet is known as the Red Planet?",
					Options:      []string{"Venus", "Mars", "Jupiter", "Mercury"},
					CorrectIndex: 1,
					TimeLimit:    20,
					Points:       1000,
				},
				{
					ID:           "2",
					Text:         "What is the capital of Australia?",
					Options:      []string{"Sydney", "Melbourne", "Canberra", "Perth"},
					CorrectIndex: 2,
					TimeLimit:    20,
					Points:       1000,
				},
				{
					ID:           "3",
					Text:         "How many strings does a standard violin have?",
					Options:      []string{"4", "5", "6", "7"},
					CorrectIndex: 0,
					TimeLimit:    15,
					Points:       1000,
				},
				{
					ID:           "4",
					Text:         "Which element has the chemical symbol 'O'?",
					Options:      []string{"Gold", "Osmium", "Oxygen", "Oganesson"},
					CorrectIndex: 2,
					TimeLimit:    15,
					Points:       1000,
				},
				{
					ID:           "5",
					Text:         "In which year did the first human land on the Moon?",
					Options:      []string{"1965", "1969", "1971", "1973"},
					CorrectIndex: 1,
					TimeLimit:    20,
					Points:       1000,
				},
				{
					ID:           "6",
					Text:         "What is the largest ocean on Earth?",
					Options:      []string{"Atlantic", "Indian", "Arctic", "Pacific"},
					CorrectIndex: 3,
					TimeLimit:    15,
					Points:       1000,
				},
			},
		},
	}
}
