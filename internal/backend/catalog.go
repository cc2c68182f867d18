package backend

import "github.com/aretw0/stepview/pkg/domain"

// Languages is the language table served by /api/languages.
var Languages = []domain.LanguageInfo{
	{ID: domain.LanguagePython, Name: "Python", Version: "3.11", Description: "General-purpose programming language"},
	{ID: domain.LanguageJavaScript, Name: "JavaScript", Version: "ES2023", Description: "Programming language of the web"},
	{ID: domain.LanguageC, Name: "C", Version: "C11", Description: "Systems programming language"},
}

// Examples holds the sample programs served by /api/examples/{language}.
var Examples = map[domain.Language][]domain.CodeExample{
	domain.LanguagePython: {
		{
			Title: "Recursive factorial",
			Code: `def factorial(n):
    if n <= 1:
        return 1
    else:
        return n * factorial(n - 1)

result = factorial(5)
print(f"5! = {result}")`,
			Description: "Factorial computed with recursion",
		},
		{
			Title: "Bubble sort",
			Code: `def bubble_sort(arr):
    n = len(arr)
    for i in range(n):
        for j in range(0, n - i - 1):
            if arr[j] > arr[j + 1]:
                arr[j], arr[j + 1] = arr[j + 1], arr[j]
    return arr

numbers = [64, 34, 25, 12, 22, 11, 90]
sorted_numbers = bubble_sort(numbers.copy())
print(f"Sorted: {sorted_numbers}")`,
			Description: "Bubble sort algorithm",
		},
	},
	domain.LanguageJavaScript: {
		{
			Title: "Recursive Fibonacci",
			Code: "function fibonacci(n) {\n" +
				"    if (n <= 1) {\n" +
				"        return n;\n" +
				"    }\n" +
				"    return fibonacci(n - 1) + fibonacci(n - 2);\n" +
				"}\n" +
				"\n" +
				"let result = fibonacci(7);\n" +
				"console.log(`Fibonacci(7) = ${result}`);",
			Description: "Fibonacci computed with recursion",
		},
	},
	domain.LanguageC: {
		{
			Title: "Hello World",
			Code: `#include <stdio.h>

int main() {
    printf("Hello, World!\n");
    return 0;
}`,
			Description: "Hello World program in C",
		},
	},
}
