package domain

// FindDuplicateEmails возвращает email, встречающиеся в пакете более одного раза.
// Сравнение точное; порядок - по первому появлению во входных данных.
// Хранилище не проверяется.
func FindDuplicateEmails(records []CustomerInput) []string {
	counts := make(map[string]int, len(records))
	order := make([]string, 0, len(records))
	for _, r := range records {
		if counts[r.Email] == 0 {
			order = append(order, r.Email)
		}
		counts[r.Email]++
	}

	duplicates := make([]string, 0)
	for _, email := range order {
		if counts[email] > 1 {
			duplicates = append(duplicates, email)
		}
	}
	return duplicates
}

// HasDuplicateAddressInList сообщает, есть ли в списке два адреса с совпадающими
// восемью значимыми полями.
func HasDuplicateAddressInList(addresses []AddressInput) bool {
	seen := make(map[AddressInput]struct{}, len(addresses))
	for _, a := range addresses {
		if _, ok := seen[a]; ok {
			return true
		}
		seen[a] = struct{}{}
	}
	return false
}
